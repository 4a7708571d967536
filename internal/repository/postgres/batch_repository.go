// internal/repository/postgres/batch_repository.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/plateiq/restock/internal/domain"
	"github.com/plateiq/restock/internal/ledger"
	"github.com/plateiq/restock/internal/repository"
)

const batchColumns = `
	batch_id, restaurant_id, ingredient_id,
	supplier_name, supplier_contact,
	COALESCE(purchase_cost_per_unit, 0) AS purchase_cost_per_unit,
	qty_received, qty_remaining,
	received_date, expiration_date, status, created_at`

type batchRepository struct {
	db *DB
}

func NewBatchRepository(db *DB) repository.BatchRepository {
	return &batchRepository{db: db}
}

func (r *batchRepository) Receive(ctx context.Context, params repository.ReceiveParams) (*domain.Batch, error) {
	if params.Qty.Sign() <= 0 {
		return nil, fmt.Errorf("receive qty %s: %w", params.Qty, domain.ErrInvalidQuantity)
	}

	query := `
		INSERT INTO ingredient_batches
			(restaurant_id, ingredient_id, qty_received, qty_remaining,
			 supplier_name, supplier_contact, purchase_cost_per_unit,
			 received_date, expiration_date)
		VALUES ($1, $2, $3, $3, $4, $5, $6, COALESCE($7, CURRENT_DATE), $8)
		RETURNING ` + batchColumns

	var batch domain.Batch
	err := r.db.GetContext(ctx, &batch, query,
		params.RestaurantID, params.IngredientID, params.Qty,
		params.SupplierName, params.SupplierContact, params.CostPerUnit,
		params.ReceivedDate, params.ExpirationDate,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert batch: %w", err)
	}

	return &batch, nil
}

func (r *batchRepository) ConsumeFIFO(ctx context.Context, restaurantID, ingredientID int64, qty decimal.Decimal) (*domain.ConsumeResult, error) {
	if qty.Sign() <= 0 {
		return nil, fmt.Errorf("consume qty %s: %w", qty, domain.ErrInvalidQuantity)
	}

	var result domain.ConsumeResult
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		// Lock the active batch set in FIFO order before reading quantities,
		// serializing concurrent consumption of the same ingredient.
		rows, err := tx.QueryContext(ctx, `
			SELECT batch_id, qty_remaining, expiration_date, received_date
			FROM ingredient_batches
			WHERE restaurant_id = $1 AND ingredient_id = $2 AND status = 'active'
			ORDER BY expiration_date ASC NULLS LAST, received_date ASC
			FOR UPDATE
		`, restaurantID, ingredientID)
		if err != nil {
			return fmt.Errorf("failed to lock active batches: %w", err)
		}
		defer rows.Close()

		var lots []ledger.Lot
		for rows.Next() {
			var lot ledger.Lot
			if err := rows.Scan(&lot.BatchID, &lot.QtyRemaining, &lot.ExpirationDate, &lot.ReceivedDate); err != nil {
				return fmt.Errorf("failed to scan batch row: %w", err)
			}
			lots = append(lots, lot)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to read active batches: %w", err)
		}
		if err := rows.Close(); err != nil {
			return fmt.Errorf("failed to close batch rows: %w", err)
		}

		// The query already orders the set; re-sorting keeps the plan
		// deterministic regardless of driver behavior.
		ledger.SortLots(lots)
		result = ledger.PlanConsumption(lots, qty)

		for _, delta := range result.Affected {
			if _, err := tx.ExecContext(ctx, `
				UPDATE ingredient_batches
				SET qty_remaining = $1, status = $2
				WHERE batch_id = $3
			`, delta.QtyRemaining, delta.Status, delta.BatchID); err != nil {
				return fmt.Errorf("failed to update batch %d: %w", delta.BatchID, err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *batchRepository) SweepExpired(ctx context.Context, restaurantID int64) ([]int64, error) {
	query := `
		UPDATE ingredient_batches
		SET status = 'expired'
		WHERE restaurant_id = $1
		  AND status = 'active'
		  AND expiration_date < CURRENT_DATE
		RETURNING batch_id
	`

	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, restaurantID); err != nil {
		return nil, fmt.Errorf("failed to sweep expired batches: %w", err)
	}

	return ids, nil
}

func (r *batchRepository) ExpiringSoon(ctx context.Context, restaurantID int64, horizonDays int) ([]domain.Batch, error) {
	query := `
		SELECT ` + batchColumns + `
		FROM ingredient_batches
		WHERE restaurant_id = $1
		  AND status = 'active'
		  AND expiration_date >= CURRENT_DATE
		  AND expiration_date <= CURRENT_DATE + $2 * INTERVAL '1 day'
		ORDER BY expiration_date ASC
	`

	var batches []domain.Batch
	if err := r.db.SelectContext(ctx, &batches, query, restaurantID, horizonDays); err != nil {
		return nil, fmt.Errorf("failed to list expiring batches: %w", err)
	}

	return batches, nil
}

func (r *batchRepository) ListBatches(ctx context.Context, restaurantID, ingredientID int64, status *domain.BatchStatus) ([]domain.Batch, error) {
	query := `
		SELECT ` + batchColumns + `
		FROM ingredient_batches
		WHERE restaurant_id = $1 AND ingredient_id = $2
		  AND ($3::text IS NULL OR status = $3)
		ORDER BY expiration_date ASC NULLS LAST, received_date ASC
	`

	var batches []domain.Batch
	if err := r.db.SelectContext(ctx, &batches, query, restaurantID, ingredientID, status); err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}

	return batches, nil
}

func (r *batchRepository) GetBatch(ctx context.Context, batchID int64) (*domain.Batch, error) {
	query := `
		SELECT ` + batchColumns + `
		FROM ingredient_batches
		WHERE batch_id = $1
	`

	var batch domain.Batch
	if err := r.db.GetContext(ctx, &batch, query, batchID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("batch %d: %w", batchID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	return &batch, nil
}
