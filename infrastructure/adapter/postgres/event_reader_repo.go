package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	outbound "github.com/healthwatch/healthwatch/application/port/outbound"
	"github.com/healthwatch/healthwatch/domain"
)

// ListEvents is the dashboard's filtered scan. Filters combine with AND;
// every filterable attribute is a stored column, so any combination
// resolves without touching the source API.
func (r *EventStoreRepository) ListEvents(ctx context.Context, q outbound.EventQuery) ([]domain.EventSummary, int, error) {
	var conditions []string
	var args []interface{}

	addCondition := func(clause string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if q.AccountID != "" {
		addCondition("account_id = $%d", q.AccountID)
	}
	if q.From != nil {
		addCondition("start_time >= $%d", q.From.UTC())
	}
	if q.To != nil {
		addCondition("start_time <= $%d", q.To.UTC())
	}
	if q.Service != "" {
		addCondition("service = $%d", q.Service)
	}
	if q.Region != "" {
		addCondition("region = $%d", q.Region)
	}
	if q.EventTypeCode != "" {
		addCondition("event_type_code = $%d", q.EventTypeCode)
	}
	if q.EventTypeCategory != "" {
		addCondition("event_type_category = $%d", q.EventTypeCategory)
	}
	if q.StatusCode != "" {
		addCondition("status_code = $%d", q.StatusCode)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM health_events %s`, where)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, q.Offset)
	query := fmt.Sprintf(`
        SELECT account_id, event_arn, service, event_type_code, event_type_category,
               event_scope_code, region, availability_zone, start_time,
               end_time, last_updated_time, status_code, expiration_time
        FROM health_events
        %s
        ORDER BY start_time DESC
        LIMIT $%d OFFSET $%d
    `, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []domain.EventSummary
	for rows.Next() {
		var e domain.EventSummary
		var zone sql.NullString
		var endTime sql.NullTime
		if err := rows.Scan(
			&e.AccountID, &e.EventArn, &e.Service, &e.EventTypeCode, &e.EventTypeCategory,
			&e.EventScopeCode, &e.Region, &zone, &e.StartTime,
			&endTime, &e.LastUpdatedTime, &e.StatusCode, &e.ExpirationTime,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan event: %w", err)
		}
		if zone.Valid {
			e.AvailabilityZone = zone.String
		}
		if endTime.Valid {
			t := endTime.Time.UTC()
			e.EndTime = &t
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, total, nil
}

func (r *EventStoreRepository) GetDetail(ctx context.Context, eventArn string) (*domain.EventDetail, error) {
	query := `
        SELECT event_arn, account_id, service, event_type_code, event_type_category,
               event_scope_code, region, availability_zone, start_time,
               end_time, last_updated_time, status_code, description, metadata, expiration_time
        FROM event_details
        WHERE event_arn = $1
    `
	var d domain.EventDetail
	var zone sql.NullString
	var startTime, endTime, lastUpdated sql.NullTime
	var metadata []byte
	err := r.db.QueryRowContext(ctx, query, eventArn).Scan(
		&d.EventArn, &d.AccountID, &d.Service, &d.EventTypeCode, &d.EventTypeCategory,
		&d.EventScopeCode, &d.Region, &zone, &startTime,
		&endTime, &lastUpdated, &d.StatusCode, &d.Description, &metadata, &d.ExpirationTime,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, outbound.ErrDetailNotFound
		}
		return nil, fmt.Errorf("failed to find event detail: %w", err)
	}
	if zone.Valid {
		d.AvailabilityZone = zone.String
	}
	if startTime.Valid {
		t := startTime.Time.UTC()
		d.StartTime = &t
	}
	if endTime.Valid {
		t := endTime.Time.UTC()
		d.EndTime = &t
	}
	if lastUpdated.Valid {
		t := lastUpdated.Time.UTC()
		d.LastUpdatedTime = &t
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &d.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event metadata: %w", err)
		}
	}
	return &d, nil
}

func (r *EventStoreRepository) ListAffectedAccounts(ctx context.Context, eventArn string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT account_id FROM affected_accounts WHERE event_arn = $1 ORDER BY account_id`, eventArn)
	if err != nil {
		return nil, fmt.Errorf("failed to list affected accounts: %w", err)
	}
	defer rows.Close()

	var accountIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan affected account: %w", err)
		}
		accountIDs = append(accountIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate affected accounts: %w", err)
	}
	return accountIDs, nil
}

func (r *EventStoreRepository) ListAffectedEntities(ctx context.Context, eventArn, accountID string) ([]domain.AffectedEntity, error) {
	query := `
        SELECT event_arn, account_id, entity_id, entity_value, entity_url,
               entity_type, status_code, last_updated_time, tags, expiration_time
        FROM affected_entities
        WHERE event_arn = $1 AND account_id = $2
        ORDER BY entity_id
    `
	rows, err := r.db.QueryContext(ctx, query, eventArn, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list affected entities: %w", err)
	}
	defer rows.Close()

	var entities []domain.AffectedEntity
	for rows.Next() {
		var e domain.AffectedEntity
		var entityURL, entityType, statusCode sql.NullString
		var lastUpdated sql.NullTime
		var tags []byte
		if err := rows.Scan(
			&e.EventArn, &e.AccountID, &e.EntityID, &e.EntityValue, &entityURL,
			&entityType, &statusCode, &lastUpdated, &tags, &e.ExpirationTime,
		); err != nil {
			return nil, fmt.Errorf("failed to scan affected entity: %w", err)
		}
		if entityURL.Valid {
			e.EntityURL = entityURL.String
		}
		if entityType.Valid {
			e.EntityType = entityType.String
		}
		if statusCode.Valid {
			e.StatusCode = statusCode.String
		}
		if lastUpdated.Valid {
			t := lastUpdated.Time.UTC()
			e.LastUpdatedTime = &t
		}
		if len(tags) > 0 {
			if err := json.Unmarshal(tags, &e.Tags); err != nil {
				return nil, fmt.Errorf("failed to unmarshal entity tags: %w", err)
			}
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate affected entities: %w", err)
	}
	return entities, nil
}
