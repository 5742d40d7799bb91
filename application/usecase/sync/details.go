package sync

import (
	"context"

	"github.com/healthwatch/healthwatch/application/port/outbound"
	"github.com/healthwatch/healthwatch/domain"
	"github.com/healthwatch/healthwatch/infrastructure/service/logger"
)

// DetailFanout fetches full event descriptions in fixed-size batches. A
// failing batch surrenders only its own ARNs; succeeding batches are kept.
type DetailFanout struct {
	api       outbound.HealthAPI
	batchSize int
	logger    logger.Logger
}

func NewDetailFanout(api outbound.HealthAPI, batchSize int, log logger.Logger) *DetailFanout {
	if batchSize <= 0 || batchSize > outbound.DetailBatchLimit {
		batchSize = outbound.DetailBatchLimit
	}
	return &DetailFanout{api: api, batchSize: batchSize, logger: log}
}

// FetchDetails issues ceil(len(eventArns)/batchSize) sequential requests
// and returns the successes together with the ARNs that failed, either
// because the upstream reported them unprocessable or because their whole
// batch errored.
func (f *DetailFanout) FetchDetails(ctx context.Context, creds *domain.DelegatedCredentials, eventArns []string) ([]domain.EventDetail, []string) {
	var details []domain.EventDetail
	var failed []string

	for start := 0; start < len(eventArns); start += f.batchSize {
		end := start + f.batchSize
		if end > len(eventArns) {
			end = len(eventArns)
		}
		batch := eventArns[start:end]

		result, err := f.api.DescribeEventDetails(ctx, creds, batch)
		if err != nil {
			failed = append(failed, batch...)
			f.logger.Warn(ctx, "Event detail batch failed", map[string]interface{}{
				"batch_size": len(batch),
				"error":      err.Error(),
			})
			continue
		}
		details = append(details, result.Details...)
		failed = append(failed, result.FailedArns...)
	}

	return details, failed
}
