// internal/repository/postgres/history_repository.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mwidjaja/procura/internal/domain"
)

type historyRepository struct {
	db *DB
}

// NewHistoryRepository returns a sales and stock history store backed by
// postgres.
func NewHistoryRepository(db *DB) *historyRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) SalesHistory(ctx context.Context, productID string, from, to time.Time) ([]domain.SalePoint, error) {
	query := `
		SELECT sale_date, quantity, revenue
		FROM sales_history
		WHERE product_id = $1 AND sale_date BETWEEN $2 AND $3
		ORDER BY sale_date
	`

	var points []domain.SalePoint
	if err := sqlx.SelectContext(ctx, r.db, &points, query, productID, from, to); err != nil {
		return nil, fmt.Errorf("failed to get sales history: %w", err)
	}

	return points, nil
}

func (r *historyRepository) StockHistory(ctx context.Context, productID string, from, to time.Time) ([]domain.StockPoint, error) {
	query := `
		SELECT stock_date, quantity
		FROM stock_history
		WHERE product_id = $1 AND stock_date BETWEEN $2 AND $3
		ORDER BY stock_date
	`

	var points []domain.StockPoint
	if err := sqlx.SelectContext(ctx, r.db, &points, query, productID, from, to); err != nil {
		return nil, fmt.Errorf("failed to get stock history: %w", err)
	}

	return points, nil
}

func (r *historyRepository) ProductIDs(ctx context.Context) ([]string, error) {
	query := `
		SELECT product_id FROM sales_history
		UNION
		SELECT product_id FROM stock_history
		ORDER BY product_id
	`

	var ids []string
	if err := sqlx.SelectContext(ctx, r.db, &ids, query); err != nil {
		return nil, fmt.Errorf("failed to list product ids: %w", err)
	}

	return ids, nil
}

func (r *historyRepository) UpsertDailySales(ctx context.Context, productID string, points []domain.SalePoint) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO sales_history (product_id, sale_date, quantity, revenue)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (product_id, sale_date)
			DO UPDATE SET quantity = EXCLUDED.quantity, revenue = EXCLUDED.revenue
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, p := range points {
			if _, err := stmt.ExecContext(ctx, productID, p.Date, p.Quantity, p.Revenue); err != nil {
				return fmt.Errorf("failed to upsert sales row: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return len(points), nil
}

func (r *historyRepository) UpsertStockLevels(ctx context.Context, productID string, points []domain.StockPoint) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO stock_history (product_id, stock_date, quantity)
			VALUES ($1, $2, $3)
			ON CONFLICT (product_id, stock_date)
			DO UPDATE SET quantity = EXCLUDED.quantity
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, p := range points {
			if _, err := stmt.ExecContext(ctx, productID, p.Date, p.Quantity); err != nil {
				return fmt.Errorf("failed to upsert stock row: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return len(points), nil
}

func (r *historyRepository) RecordIngestRun(ctx context.Context, run *domain.IngestRun) error {
	query := `
		INSERT INTO ingest_runs (
			source, file_name, file_modified, rows_ingested,
			status, error, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		run.Source, run.FileName, run.FileModified, run.RowsIngested,
		run.Status, run.Error, run.StartedAt, run.FinishedAt,
	).Scan(&run.ID)
	if err != nil {
		return fmt.Errorf("failed to record ingest run: %w", err)
	}

	return nil
}

func (r *historyRepository) RecentIngestRuns(ctx context.Context, limit int) ([]domain.IngestRun, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}

	query := `
		SELECT id, source, file_name, file_modified, rows_ingested,
		       status, error, started_at, finished_at
		FROM ingest_runs
		ORDER BY started_at DESC, id DESC
		LIMIT $1
	`

	var runs []domain.IngestRun
	if err := sqlx.SelectContext(ctx, r.db, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list ingest runs: %w", err)
	}

	return runs, nil
}
