package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/sokomart/ledger/internal/apierror"
	"github.com/sokomart/ledger/model"
)

const payoutColumns = `payout_id, seller_id, amount, method, account_details, status, requested_at, processed_at, completed_at, failure_reason, transaction_ref`

func scanPayout(row interface{ Scan(...interface{}) error }) (*model.Payout, error) {
	p := &model.Payout{}
	var detailsJSON []byte
	var processedAt, completedAt sql.NullTime
	var failureReason, transactionRef sql.NullString
	err := row.Scan(
		&p.PayoutID,
		&p.SellerID,
		&p.Amount,
		&p.Method,
		&detailsJSON,
		&p.Status,
		&p.RequestedAt,
		&processedAt,
		&completedAt,
		&failureReason,
		&transactionRef,
	)
	if err != nil {
		return nil, err
	}
	if processedAt.Valid {
		p.ProcessedAt = &processedAt.Time
	}
	if completedAt.Valid {
		p.CompletedAt = &completedAt.Time
	}
	p.FailureReason = failureReason.String
	p.TransactionRef = transactionRef.String
	if len(detailsJSON) > 0 {
		if err := json.Unmarshal(detailsJSON, &p.AccountDetails); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (d Datasource) CreatePayout(ctx context.Context, p *model.Payout) (*model.Payout, error) {
	ctx, span := otel.Tracer("ledger.database").Start(ctx, "Saving payout to db")
	defer span.End()

	detailsJSON, err := json.Marshal(p.AccountDetails)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal account details", err)
	}

	_, err = d.Conn.ExecContext(ctx,
		`INSERT INTO payouts(payout_id,seller_id,amount,method,account_details,status,requested_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.PayoutID, p.SellerID, p.Amount, p.Method, detailsJSON, p.Status, p.RequestedAt,
	)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create payout", err)
	}

	return p, nil
}

func (d Datasource) GetPayout(ctx context.Context, id string) (*model.Payout, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+payoutColumns+`
		FROM payouts
		WHERE payout_id = $1
	`, id)

	p, err := scanPayout(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Payout with ID '%s' not found", id), nil)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve payout", err)
	}
	return p, nil
}

// UpdatePayoutStatus persists a state transition with a compare-and-swap on
// the current status. The row is the arbiter for racing cancel/advance
// calls: whoever loses the swap gets zero rows and an INVALID_TRANSITION.
func (d Datasource) UpdatePayoutStatus(ctx context.Context, p *model.Payout, expected model.PayoutStatus) error {
	ctx, span := otel.Tracer("ledger.database").Start(ctx, "Updating payout status")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE payouts
		SET status = $2, processed_at = $3, completed_at = $4, failure_reason = NULLIF($5, ''), transaction_ref = NULLIF($6, '')
		WHERE payout_id = $1 AND status = $7
	`, p.PayoutID, p.Status, p.ProcessedAt, p.CompletedAt, p.FailureReason, p.TransactionRef, expected)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update payout status", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrInvalidTransition,
			fmt.Sprintf("Payout '%s' is no longer %s", p.PayoutID, expected), nil)
	}

	return nil
}

func (d Datasource) ListPayoutsForSeller(ctx context.Context, sellerID string, filter model.PayoutFilter) ([]*model.Payout, int64, error) {
	ctx, span := otel.Tracer("ledger.database").Start(ctx, "Listing seller payouts")
	defer span.End()

	filter.Normalize()

	where := []string{"seller_id = $1"}
	args := []interface{}{sellerID}
	argIndex := 2

	if filter.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, filter.Status)
		argIndex++
	}

	whereClause := strings.Join(where, " AND ")

	var total int64
	err := d.Conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM payouts WHERE `+whereClause, args...).Scan(&total)
	if err != nil {
		return nil, 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to count payouts", err)
	}

	query := fmt.Sprintf(`
		SELECT `+payoutColumns+`
		FROM payouts
		WHERE %s
		ORDER BY requested_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argIndex, argIndex+1)
	args = append(args, filter.Limit, filter.Offset())

	rows, err := d.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve payouts", err)
	}
	defer rows.Close()

	var payouts []*model.Payout
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan payout data", err)
		}
		payouts = append(payouts, p)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over payouts", err)
	}

	return payouts, total, nil
}

// GetPayoutSummary sums the reservation and paid-out totals for a seller,
// served by the (seller_id, status) index.
func (d Datasource) GetPayoutSummary(ctx context.Context, sellerID string) (*model.PayoutSummary, error) {
	ctx, span := otel.Tracer("ledger.database").Start(ctx, "Summing seller payouts")
	defer span.End()

	summary := &model.PayoutSummary{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE status IN ('pending', 'processing')), 0),
			COALESCE(SUM(amount) FILTER (WHERE status = 'paid'), 0)
		FROM payouts
		WHERE seller_id = $1
	`, sellerID).Scan(&summary.Reserved, &summary.PaidOut)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to sum seller payouts", err)
	}

	return summary, nil
}
