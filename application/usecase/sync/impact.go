package sync

import (
	"context"

	"github.com/healthwatch/healthwatch/application/port/outbound"
	"github.com/healthwatch/healthwatch/domain"
	"github.com/healthwatch/healthwatch/infrastructure/service/logger"
)

// ImpactFanout resolves, per discovered event, which accounts it impacts
// and which resources under each (event, account) pair. The entity stage's
// fan-out factor is events × affected accounts per event, which is why the
// persister batches writes instead of writing one entity at a time.
type ImpactFanout struct {
	api    outbound.HealthAPI
	logger logger.Logger
}

func NewImpactFanout(api outbound.HealthAPI, log logger.Logger) *ImpactFanout {
	return &ImpactFanout{api: api, logger: log}
}

// FetchAffectedAccounts pages through all accounts impacted by the event.
func (f *ImpactFanout) FetchAffectedAccounts(ctx context.Context, creds *domain.DelegatedCredentials, eventArn string) ([]string, error) {
	var accounts []string
	nextToken := ""
	for {
		page, err := f.api.DescribeAffectedAccounts(ctx, creds, eventArn, nextToken)
		if err != nil {
			return nil, domain.ErrImpactFetchFailed(eventArn, err)
		}
		accounts = append(accounts, page.AccountIDs...)
		if page.NextToken == "" {
			return accounts, nil
		}
		nextToken = page.NextToken
	}
}

// FetchAffectedEntities pages through all impacted resources under one
// (event, account) pair, tagging each entity with the pair it belongs to.
func (f *ImpactFanout) FetchAffectedEntities(ctx context.Context, creds *domain.DelegatedCredentials, eventArn, accountID string) ([]domain.AffectedEntity, error) {
	var entities []domain.AffectedEntity
	nextToken := ""
	for {
		page, err := f.api.DescribeAffectedEntities(ctx, creds, eventArn, accountID, nextToken)
		if err != nil {
			return nil, domain.ErrImpactFetchFailed(eventArn, err)
		}
		for _, entity := range page.Entities {
			entity.EventArn = eventArn
			entity.AccountID = accountID
			entities = append(entities, entity)
		}
		if page.NextToken == "" {
			return entities, nil
		}
		nextToken = page.NextToken
	}
}

// FetchImpact runs both stages for every event. An event with zero
// affected accounts short-circuits the entity stage. A failing event or
// pair is logged and skipped; its siblings proceed.
func (f *ImpactFanout) FetchImpact(ctx context.Context, creds *domain.DelegatedCredentials, eventArns []string) ([]domain.AffectedAccountLink, []domain.AffectedEntity) {
	var links []domain.AffectedAccountLink
	var entities []domain.AffectedEntity

	for _, eventArn := range eventArns {
		accountIDs, err := f.FetchAffectedAccounts(ctx, creds, eventArn)
		if err != nil {
			f.logger.Warn(ctx, "Affected account fetch failed", map[string]interface{}{
				"event_arn": eventArn,
				"error":     err.Error(),
			})
			continue
		}

		for _, accountID := range accountIDs {
			links = append(links, domain.AffectedAccountLink{
				EventArn:  eventArn,
				AccountID: accountID,
			})

			pairEntities, err := f.FetchAffectedEntities(ctx, creds, eventArn, accountID)
			if err != nil {
				f.logger.Warn(ctx, "Affected entity fetch failed", map[string]interface{}{
					"event_arn":  eventArn,
					"account_id": accountID,
					"error":      err.Error(),
				})
				continue
			}
			entities = append(entities, pairEntities...)
		}
	}

	return links, entities
}
