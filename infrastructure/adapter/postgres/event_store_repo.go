package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/healthwatch/healthwatch/domain"
)

// defaultBatchSize bounds rows per upsert statement.
const defaultBatchSize = 100

// expirableTables are the record kinds covered by the retention policy.
var expirableTables = []string{"health_events", "event_details", "affected_accounts", "affected_entities"}

// EventStoreRepository implements EventStore and EventReader using
// PostgreSQL. Upserts key on the record identity, so re-running a sync
// over an overlapping window converges instead of duplicating.
type EventStoreRepository struct {
	db        *sql.DB
	batchSize int
}

func NewEventStoreRepository(db *sql.DB, batchSize int) *EventStoreRepository {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &EventStoreRepository{db: db, batchSize: batchSize}
}

// placeholderRows renders "($1,$2),($3,$4)" style placeholder lists for a
// multi-row insert.
func placeholderRows(cols, rows int) string {
	var b strings.Builder
	arg := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(",")
		}
		b.WriteString("(")
		for c := 0; c < cols; c++ {
			if c > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, "$%d", arg)
			arg++
		}
		b.WriteString(")")
	}
	return b.String()
}

func (r *EventStoreRepository) UpsertEvents(ctx context.Context, events []domain.EventSummary) (int, error) {
	const cols = 13
	written := 0
	for start := 0; start < len(events); start += r.batchSize {
		end := start + r.batchSize
		if end > len(events) {
			end = len(events)
		}
		batch := events[start:end]

		args := make([]interface{}, 0, len(batch)*cols)
		for _, e := range batch {
			args = append(args,
				e.AccountID, e.EventArn, e.Service, e.EventTypeCode, e.EventTypeCategory,
				e.EventScopeCode, e.Region, nullString(e.AvailabilityZone), e.StartTime.UTC(),
				nullTime(e.EndTime), e.LastUpdatedTime.UTC(), e.StatusCode, e.ExpirationTime.UTC(),
			)
		}
		query := fmt.Sprintf(`
            INSERT INTO health_events
                (account_id, event_arn, service, event_type_code, event_type_category,
                 event_scope_code, region, availability_zone, start_time,
                 end_time, last_updated_time, status_code, expiration_time)
            VALUES %s
            ON CONFLICT (account_id, event_arn) DO UPDATE SET
                end_time = EXCLUDED.end_time,
                last_updated_time = EXCLUDED.last_updated_time,
                status_code = EXCLUDED.status_code,
                expiration_time = EXCLUDED.expiration_time
        `, placeholderRows(cols, len(batch)))

		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return written, fmt.Errorf("failed to upsert events: %w", err)
		}
		written += len(batch)
	}
	return written, nil
}

func (r *EventStoreRepository) UpsertDetails(ctx context.Context, details []domain.EventDetail) (int, error) {
	const cols = 15
	written := 0
	for start := 0; start < len(details); start += r.batchSize {
		end := start + r.batchSize
		if end > len(details) {
			end = len(details)
		}
		batch := details[start:end]

		args := make([]interface{}, 0, len(batch)*cols)
		for _, d := range batch {
			metadata, err := json.Marshal(d.Metadata)
			if err != nil {
				return written, fmt.Errorf("failed to marshal event metadata: %w", err)
			}
			args = append(args,
				d.EventArn, d.AccountID, d.Service, d.EventTypeCode, d.EventTypeCategory,
				d.EventScopeCode, d.Region, nullString(d.AvailabilityZone), nullTime(d.StartTime),
				nullTime(d.EndTime), nullTime(d.LastUpdatedTime), d.StatusCode, d.Description,
				metadata, d.ExpirationTime.UTC(),
			)
		}
		query := fmt.Sprintf(`
            INSERT INTO event_details
                (event_arn, account_id, service, event_type_code, event_type_category,
                 event_scope_code, region, availability_zone, start_time,
                 end_time, last_updated_time, status_code, description, metadata, expiration_time)
            VALUES %s
            ON CONFLICT (event_arn) DO UPDATE SET
                end_time = EXCLUDED.end_time,
                last_updated_time = EXCLUDED.last_updated_time,
                status_code = EXCLUDED.status_code,
                description = EXCLUDED.description,
                metadata = EXCLUDED.metadata,
                expiration_time = EXCLUDED.expiration_time
        `, placeholderRows(cols, len(batch)))

		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return written, fmt.Errorf("failed to upsert event details: %w", err)
		}
		written += len(batch)
	}
	return written, nil
}

func (r *EventStoreRepository) UpsertAffectedAccounts(ctx context.Context, links []domain.AffectedAccountLink) (int, error) {
	const cols = 3
	written := 0
	for start := 0; start < len(links); start += r.batchSize {
		end := start + r.batchSize
		if end > len(links) {
			end = len(links)
		}
		batch := links[start:end]

		args := make([]interface{}, 0, len(batch)*cols)
		for _, l := range batch {
			args = append(args, l.EventArn, l.AccountID, l.ExpirationTime.UTC())
		}
		query := fmt.Sprintf(`
            INSERT INTO affected_accounts (event_arn, account_id, expiration_time)
            VALUES %s
            ON CONFLICT (event_arn, account_id) DO UPDATE SET
                expiration_time = EXCLUDED.expiration_time
        `, placeholderRows(cols, len(batch)))

		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return written, fmt.Errorf("failed to upsert affected accounts: %w", err)
		}
		written += len(batch)
	}
	return written, nil
}

func (r *EventStoreRepository) UpsertAffectedEntities(ctx context.Context, entities []domain.AffectedEntity) (int, error) {
	const cols = 10
	written := 0
	for start := 0; start < len(entities); start += r.batchSize {
		end := start + r.batchSize
		if end > len(entities) {
			end = len(entities)
		}
		batch := entities[start:end]

		args := make([]interface{}, 0, len(batch)*cols)
		for _, e := range batch {
			tags, err := json.Marshal(e.Tags)
			if err != nil {
				return written, fmt.Errorf("failed to marshal entity tags: %w", err)
			}
			args = append(args,
				e.EventArn, e.AccountID, e.EntityID, e.EntityValue, nullString(e.EntityURL),
				nullString(e.EntityType), nullString(e.StatusCode), nullTime(e.LastUpdatedTime),
				tags, e.ExpirationTime.UTC(),
			)
		}
		query := fmt.Sprintf(`
            INSERT INTO affected_entities
                (event_arn, account_id, entity_id, entity_value, entity_url,
                 entity_type, status_code, last_updated_time, tags, expiration_time)
            VALUES %s
            ON CONFLICT (event_arn, account_id, entity_id) DO UPDATE SET
                entity_value = EXCLUDED.entity_value,
                entity_url = EXCLUDED.entity_url,
                entity_type = EXCLUDED.entity_type,
                status_code = EXCLUDED.status_code,
                last_updated_time = EXCLUDED.last_updated_time,
                tags = EXCLUDED.tags,
                expiration_time = EXCLUDED.expiration_time
        `, placeholderRows(cols, len(batch)))

		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return written, fmt.Errorf("failed to upsert affected entities: %w", err)
		}
		written += len(batch)
	}
	return written, nil
}

// EnsureRetentionPolicy registers the expiry attribute for every
// expirable table. ON CONFLICT DO NOTHING makes concurrent enabling a
// no-op rather than an error.
func (r *EventStoreRepository) EnsureRetentionPolicy(ctx context.Context) error {
	for _, table := range expirableTables {
		query := `
            INSERT INTO retention_policies (table_name, attribute_name, enabled_at)
            VALUES ($1, 'expiration_time', $2)
            ON CONFLICT (table_name) DO NOTHING
        `
		if _, err := r.db.ExecContext(ctx, query, table, time.Now().UTC()); err != nil {
			return fmt.Errorf("failed to enable retention for %s: %w", table, err)
		}
	}
	return nil
}

// DeleteExpired sweeps rows past their expiration_time from every table
// with a registered policy. The store analogue of a TTL delete.
func (r *EventStoreRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var total int64
	for _, table := range expirableTables {
		query := fmt.Sprintf(`
            DELETE FROM %s
            WHERE expiration_time < $1
              AND EXISTS (
                  SELECT 1 FROM retention_policies rp WHERE rp.table_name = '%s'
              )
        `, table, table)
		result, err := r.db.ExecContext(ctx, query, now.UTC())
		if err != nil {
			return total, fmt.Errorf("failed to sweep %s: %w", table, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("failed to read affected rows: %w", err)
		}
		total += rows
	}
	return total, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
