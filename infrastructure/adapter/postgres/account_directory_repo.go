package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	outbound "github.com/healthwatch/healthwatch/application/port/outbound"
	"github.com/healthwatch/healthwatch/domain"
)

// AccountDirectoryRepository implements AccountDirectory using PostgreSQL
type AccountDirectoryRepository struct{ db *sql.DB }

func NewAccountDirectoryRepository(db *sql.DB) outbound.AccountDirectory {
	return &AccountDirectoryRepository{db: db}
}

func (r *AccountDirectoryRepository) Register(ctx context.Context, account *domain.RegisteredAccount) error {
	query := `
        INSERT INTO registered_accounts (account_id, role_name, created_at, updated_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (account_id) DO NOTHING
    `
	result, err := r.db.ExecContext(ctx, query,
		account.AccountID,
		account.RoleName,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to register account: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return outbound.ErrAccountAlreadyExists
	}
	return nil
}

func (r *AccountDirectoryRepository) UpdateRoleName(ctx context.Context, accountID, roleName string) error {
	query := `
        UPDATE registered_accounts
        SET role_name = $2, updated_at = $3
        WHERE account_id = $1
    `
	result, err := r.db.ExecContext(ctx, query, accountID, roleName, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update account role: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return outbound.ErrAccountNotFound
	}
	return nil
}

func (r *AccountDirectoryRepository) Deregister(ctx context.Context, accountID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM registered_accounts WHERE account_id = $1`, accountID)
	if err != nil {
		return fmt.Errorf("failed to deregister account: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return outbound.ErrAccountNotFound
	}
	return nil
}

func (r *AccountDirectoryRepository) FindByID(ctx context.Context, accountID string) (*domain.RegisteredAccount, error) {
	query := `
        SELECT account_id, role_name, last_synced_time, created_at, updated_at
        FROM registered_accounts
        WHERE account_id = $1
    `
	var account domain.RegisteredAccount
	var lastSynced sql.NullTime
	err := r.db.QueryRowContext(ctx, query, accountID).Scan(
		&account.AccountID,
		&account.RoleName,
		&lastSynced,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, outbound.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if lastSynced.Valid {
		t := lastSynced.Time.UTC()
		account.LastSyncedTime = &t
	}
	return &account, nil
}

func (r *AccountDirectoryRepository) ListAll(ctx context.Context) ([]domain.RegisteredAccount, error) {
	query := `
        SELECT account_id, role_name, last_synced_time, created_at, updated_at
        FROM registered_accounts
        ORDER BY account_id
    `
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.RegisteredAccount
	for rows.Next() {
		var account domain.RegisteredAccount
		var lastSynced sql.NullTime
		if err := rows.Scan(
			&account.AccountID,
			&account.RoleName,
			&lastSynced,
			&account.CreatedAt,
			&account.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		if lastSynced.Valid {
			t := lastSynced.Time.UTC()
			account.LastSyncedTime = &t
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

// AdvanceWatermark is monotonic at the SQL level: the guard in the WHERE
// clause makes stale or concurrent calls no-ops, so overlapping runs can
// never move last_synced_time backward.
func (r *AccountDirectoryRepository) AdvanceWatermark(ctx context.Context, accountID string, syncedTo time.Time) error {
	query := `
        UPDATE registered_accounts
        SET last_synced_time = $2, updated_at = $3
        WHERE account_id = $1
          AND (last_synced_time IS NULL OR last_synced_time < $2)
    `
	if _, err := r.db.ExecContext(ctx, query, accountID, syncedTo.UTC(), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to advance watermark: %w", err)
	}
	return nil
}
