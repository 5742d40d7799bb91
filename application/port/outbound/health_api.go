package outbound

import (
	"context"

	"github.com/healthwatch/healthwatch/domain"
)

// DetailBatchLimit is the upstream API's ceiling on ARNs per detail request.
const DetailBatchLimit = 10

// EventFilter narrows discovery beyond the time window. Filters intersect
// with the window, they never widen it.
type EventFilter struct {
	Services            []string
	Regions             []string
	EventTypeCodes      []string
	EventTypeCategories []string
}

// EventPage is one page of event summaries. An empty NextToken signals the
// final page.
type EventPage struct {
	Events    []domain.EventSummary
	NextToken string
}

// DetailResult carries per-batch successes alongside the ARNs the upstream
// reported as unprocessable. Failures here are data, not errors.
type DetailResult struct {
	Details    []domain.EventDetail
	FailedArns []string
}

// AccountPage is one page of affected account IDs for an event.
type AccountPage struct {
	AccountIDs []string
	NextToken  string
}

// EntityPage is one page of affected entities for an (event, account) pair.
type EntityPage struct {
	Entities  []domain.AffectedEntity
	NextToken string
}

// HealthAPI is the event-source collaborator: the slow, rate-limited,
// per-account API the catalog exists to shield the dashboard from. All
// calls run under the delegated credentials of the account being synced.
type HealthAPI interface {
	// DescribeEvents returns one page of event summaries whose status is
	// open, upcoming or closed, bounded to the window. Pass an empty
	// nextToken for the first page.
	DescribeEvents(ctx context.Context, creds *domain.DelegatedCredentials, window domain.Window, filter EventFilter, nextToken string) (*EventPage, error)

	// DescribeEventDetails fetches full descriptions for at most
	// DetailBatchLimit ARNs.
	DescribeEventDetails(ctx context.Context, creds *domain.DelegatedCredentials, eventArns []string) (*DetailResult, error)

	// DescribeAffectedAccounts returns one page of accounts impacted by
	// the event.
	DescribeAffectedAccounts(ctx context.Context, creds *domain.DelegatedCredentials, eventArn, nextToken string) (*AccountPage, error)

	// DescribeAffectedEntities returns one page of impacted resources
	// under the (event, account) pair.
	DescribeAffectedEntities(ctx context.Context, creds *domain.DelegatedCredentials, eventArn, accountID, nextToken string) (*EntityPage, error)
}
