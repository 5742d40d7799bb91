package sync

import (
	"context"

	"github.com/healthwatch/healthwatch/application/port/outbound"
	"github.com/healthwatch/healthwatch/domain"
)

// EventDiscovery pulls event summaries for one account, bounded to a time
// window, draining the source API's pages to exhaustion.
type EventDiscovery struct {
	api    outbound.HealthAPI
	filter outbound.EventFilter
}

func NewEventDiscovery(api outbound.HealthAPI, filter outbound.EventFilter) *EventDiscovery {
	return &EventDiscovery{api: api, filter: filter}
}

// Discover returns a lazy sequence over all summaries in the window. The
// sequence is finite and non-restartable; a fresh Discover call with the
// same window starts over. An empty window is a valid terminal outcome,
// not an error.
func (d *EventDiscovery) Discover(ctx context.Context, creds *domain.DelegatedCredentials, window domain.Window) *SummarySequence {
	return &SummarySequence{
		ctx:    ctx,
		api:    d.api,
		creds:  creds,
		window: window,
		filter: d.filter,
	}
}

// SummarySequence yields event summaries on demand, fetching the next page
// only when the buffered one is spent.
type SummarySequence struct {
	ctx    context.Context
	api    outbound.HealthAPI
	creds  *domain.DelegatedCredentials
	window domain.Window
	filter outbound.EventFilter

	buf       []domain.EventSummary
	nextToken string
	started   bool
	done      bool
	err       error
}

// Next returns the next summary, or ok=false when the sequence is
// exhausted or failed. Check Err after ok=false.
func (s *SummarySequence) Next() (domain.EventSummary, bool) {
	for len(s.buf) == 0 {
		if s.done || s.err != nil {
			return domain.EventSummary{}, false
		}
		if s.started && s.nextToken == "" {
			s.done = true
			return domain.EventSummary{}, false
		}
		page, err := s.api.DescribeEvents(s.ctx, s.creds, s.window, s.filter, s.nextToken)
		if err != nil {
			s.err = err
			return domain.EventSummary{}, false
		}
		s.started = true
		s.buf = page.Events
		s.nextToken = page.NextToken
		if len(s.buf) == 0 && s.nextToken == "" {
			s.done = true
			return domain.EventSummary{}, false
		}
	}
	next := s.buf[0]
	s.buf = s.buf[1:]
	return next, true
}

// Err reports the first page fetch failure, if any.
func (s *SummarySequence) Err() error {
	return s.err
}

// Drain consumes the whole sequence into a slice.
func (s *SummarySequence) Drain() ([]domain.EventSummary, error) {
	var out []domain.EventSummary
	for {
		summary, ok := s.Next()
		if !ok {
			break
		}
		out = append(out, summary)
	}
	if s.err != nil {
		return nil, s.err
	}
	return out, nil
}
