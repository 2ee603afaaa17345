// internal/repository/postgres/ledger_store.go
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/mwidjaja/procura/internal/domain"
)

type ledgerStore struct {
	db *DB
}

// NewLedgerStore returns a context-entry store backed by postgres.
func NewLedgerStore(db *DB) *ledgerStore {
	return &ledgerStore{db: db}
}

// entryRow is the flat database shape of a context entry. The typed detail
// payload and the adjustment list travel as JSONB.
type entryRow struct {
	ID            string         `db:"id"`
	EntryType     string         `db:"entry_type"`
	EventDate     *time.Time     `db:"event_date"`
	Reason        string         `db:"reason"`
	ProductIDs    pq.StringArray `db:"product_ids"`
	Adjustments   []byte         `db:"adjustments"`
	Detail        []byte         `db:"detail"`
	Active        bool           `db:"active"`
	CreatedAt     time.Time      `db:"created_at"`
	DeactivatedAt *time.Time     `db:"deactivated_at"`
}

func (r entryRow) toDomain() (*domain.ContextEntry, error) {
	entry := &domain.ContextEntry{
		ID:            r.ID,
		Type:          domain.EntryType(r.EntryType),
		EventDate:     r.EventDate,
		Reason:        r.Reason,
		ProductIDs:    []string(r.ProductIDs),
		Active:        r.Active,
		CreatedAt:     r.CreatedAt,
		DeactivatedAt: r.DeactivatedAt,
	}

	if len(r.Adjustments) > 0 {
		if err := json.Unmarshal(r.Adjustments, &entry.Adjustments); err != nil {
			return nil, fmt.Errorf("failed to decode adjustments for entry %s: %w", r.ID, err)
		}
	}

	detail, err := domain.DecodeEntryDetail(entry.Type, r.Detail)
	if err != nil {
		return nil, fmt.Errorf("failed to decode entry %s: %w", r.ID, err)
	}
	entry.Detail = detail

	return entry, nil
}

func (s *ledgerStore) Append(ctx context.Context, entry *domain.ContextEntry) error {
	if entry == nil || entry.ID == "" {
		return fmt.Errorf("entry must have an id")
	}
	if entry.Detail == nil {
		return fmt.Errorf("entry %s has no detail payload", entry.ID)
	}

	adjustments := entry.Adjustments
	if adjustments == nil {
		adjustments = []domain.Adjustment{}
	}
	adjJSON, err := json.Marshal(adjustments)
	if err != nil {
		return fmt.Errorf("failed to encode adjustments: %w", err)
	}
	detailJSON, err := json.Marshal(entry.Detail)
	if err != nil {
		return fmt.Errorf("failed to encode detail: %w", err)
	}

	query := `
		INSERT INTO context_entries (
			id, entry_type, event_date, reason, product_ids,
			adjustments, detail, active, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = s.db.ExecContext(ctx, query,
		entry.ID, string(entry.Type), entry.EventDate, entry.Reason,
		pq.Array(entry.ProductIDs), adjJSON, detailJSON,
		entry.Active, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append context entry: %w", err)
	}

	return nil
}

func (s *ledgerStore) Entry(ctx context.Context, id string) (*domain.ContextEntry, error) {
	query := `
		SELECT id, entry_type, event_date, reason, product_ids,
		       adjustments, detail, active, created_at, deactivated_at
		FROM context_entries
		WHERE id = $1
	`

	var row entryRow
	if err := sqlx.GetContext(ctx, s.db, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get context entry: %w", err)
	}

	return row.toDomain()
}

func (s *ledgerStore) EntriesForProduct(ctx context.Context, productID string, includeInactive bool) ([]domain.ContextEntry, error) {
	query := `
		SELECT id, entry_type, event_date, reason, product_ids,
		       adjustments, detail, active, created_at, deactivated_at
		FROM context_entries
		WHERE $1 = ANY(product_ids) AND ($2 OR active)
		ORDER BY created_at, id
	`

	var rows []entryRow
	if err := sqlx.SelectContext(ctx, s.db, &rows, query, productID, includeInactive); err != nil {
		return nil, fmt.Errorf("failed to list entries for product: %w", err)
	}

	return decodeRows(rows)
}

func (s *ledgerStore) EntriesByType(ctx context.Context, t domain.EntryType) ([]domain.ContextEntry, error) {
	query := `
		SELECT id, entry_type, event_date, reason, product_ids,
		       adjustments, detail, active, created_at, deactivated_at
		FROM context_entries
		WHERE entry_type = $1 AND active
		ORDER BY created_at, id
	`

	var rows []entryRow
	if err := sqlx.SelectContext(ctx, s.db, &rows, query, string(t)); err != nil {
		return nil, fmt.Errorf("failed to list entries by type: %w", err)
	}

	return decodeRows(rows)
}

func (s *ledgerStore) Deactivate(ctx context.Context, id string, at time.Time) (bool, error) {
	query := `
		UPDATE context_entries
		SET active = FALSE, deactivated_at = $2
		WHERE id = $1 AND active
	`

	res, err := s.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to deactivate context entry: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read deactivation result: %w", err)
	}

	return affected > 0, nil
}

func decodeRows(rows []entryRow) ([]domain.ContextEntry, error) {
	out := make([]domain.ContextEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *entry)
	}

	return out, nil
}
