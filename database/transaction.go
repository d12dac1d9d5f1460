package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/sokomart/ledger/internal/apierror"
	"github.com/sokomart/ledger/model"

	_ "github.com/lib/pq"
)

const transactionColumns = `transaction_id, seller_id, order_id, order_number, gross_amount, platform_fee_rate, platform_fee, net_amount, status, created_at, settled_at, meta_data`

func scanTransaction(row interface{ Scan(...interface{}) error }) (*model.Transaction, error) {
	txn := &model.Transaction{}
	var metaDataJSON []byte
	var settledAt sql.NullTime
	err := row.Scan(
		&txn.TransactionID,
		&txn.SellerID,
		&txn.OrderID,
		&txn.OrderNumber,
		&txn.GrossAmount,
		&txn.PlatformFeeRate,
		&txn.PlatformFee,
		&txn.NetAmount,
		&txn.Status,
		&txn.CreatedAt,
		&settledAt,
		&metaDataJSON,
	)
	if err != nil {
		return nil, err
	}
	if settledAt.Valid {
		txn.SettledAt = &settledAt.Time
	}
	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &txn.MetaData); err != nil {
			return nil, err
		}
	}
	return txn, nil
}

// RecordTransaction inserts a seller earning. The unique (seller_id,
// order_id) constraint makes ingestion idempotent: a replayed settlement
// event inserts nothing and surfaces as a CONFLICT the caller can recover.
func (d Datasource) RecordTransaction(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	ctx, span := otel.Tracer("ledger.database").Start(ctx, "Saving transaction to db")
	defer span.End()

	metaDataJSON, err := json.Marshal(txn.MetaData)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	result, err := d.Conn.ExecContext(ctx,
		`INSERT INTO transactions(transaction_id,seller_id,order_id,order_number,gross_amount,platform_fee_rate,platform_fee,net_amount,status,created_at,meta_data)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 ON CONFLICT (seller_id, order_id) DO NOTHING`,
		txn.TransactionID, txn.SellerID, txn.OrderID, txn.OrderNumber, txn.GrossAmount, txn.PlatformFeeRate, txn.PlatformFee, txn.NetAmount, txn.Status, txn.CreatedAt, metaDataJSON,
	)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record transaction", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return nil, apierror.NewAPIError(apierror.ErrConflict,
			fmt.Sprintf("Order '%s' already has a transaction for seller '%s'", txn.OrderID, txn.SellerID), nil)
	}

	d.cacheTransaction(ctx, txn)
	return txn, nil
}

func (d Datasource) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	if d.Cache != nil {
		var cached model.Transaction
		if err := d.Cache.Get(ctx, transactionCacheKey(id), &cached); err == nil && cached.TransactionID != "" {
			return &cached, nil
		}
	}

	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE transaction_id = $1
	`, id)

	txn, err := scanTransaction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Transaction with ID '%s' not found", id), nil)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve transaction", err)
	}

	d.cacheTransaction(ctx, txn)
	return txn, nil
}

func (d Datasource) GetTransactionByOrder(ctx context.Context, sellerID, orderID string) (*model.Transaction, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE seller_id = $1 AND order_id = $2
	`, sellerID, orderID)

	txn, err := scanTransaction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("No transaction for order '%s'", orderID), nil)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve transaction", err)
	}
	return txn, nil
}

// MarkTransactionSettled moves a pending transaction to completed or failed.
// The WHERE status = 'pending' guard keeps settled transactions immutable;
// a zero-row update is disambiguated into NOT_FOUND or ALREADY_SETTLED.
func (d Datasource) MarkTransactionSettled(ctx context.Context, id string, outcome model.TransactionStatus, settledAt time.Time) (*model.Transaction, error) {
	ctx, span := otel.Tracer("ledger.database").Start(ctx, "Marking transaction settled")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `
		UPDATE transactions
		SET status = $2, settled_at = $3
		WHERE transaction_id = $1 AND status = $4
		RETURNING `+transactionColumns+`
	`, id, outcome, settledAt, model.TransactionStatusPending)

	txn, err := scanTransaction(row)
	if err == nil {
		d.cacheTransaction(ctx, txn)
		return txn, nil
	}
	if err != sql.ErrNoRows {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to settle transaction", err)
	}

	existing, getErr := d.GetTransaction(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, apierror.NewAPIError(apierror.ErrAlreadySettled,
		fmt.Sprintf("Transaction '%s' is already %s", id, existing.Status), nil)
}

// ListTransactionsForSeller returns one page of the seller's ledger, newest
// first, plus the total row count for the filter so pagination is stable.
func (d Datasource) ListTransactionsForSeller(ctx context.Context, sellerID string, filter model.TransactionFilter) ([]*model.Transaction, int64, error) {
	ctx, span := otel.Tracer("ledger.database").Start(ctx, "Listing seller transactions")
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
	if !filter.From.IsZero() {
		where = append(where, fmt.Sprintf("created_at >= $%d", argIndex))
		args = append(args, filter.From)
		argIndex++
	}
	if !filter.To.IsZero() {
		where = append(where, fmt.Sprintf("created_at <= $%d", argIndex))
		args = append(args, filter.To)
		argIndex++
	}
	if filter.MinAmount > 0 {
		where = append(where, fmt.Sprintf("gross_amount >= $%d", argIndex))
		args = append(args, filter.MinAmount)
		argIndex++
	}
	if filter.MaxAmount > 0 {
		where = append(where, fmt.Sprintf("gross_amount <= $%d", argIndex))
		args = append(args, filter.MaxAmount)
		argIndex++
	}

	whereClause := strings.Join(where, " AND ")

	var total int64
	err := d.Conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE `+whereClause, args...).Scan(&total)
	if err != nil {
		return nil, 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to count transactions", err)
	}

	query := fmt.Sprintf(`
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argIndex, argIndex+1)
	args = append(args, filter.Limit, filter.Offset())

	rows, err := d.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve transactions", err)
	}
	defer rows.Close()

	var transactions []*model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan transaction data", err)
		}
		transactions = append(transactions, txn)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over transactions", err)
	}

	return transactions, total, nil
}

// GetEarningsSummary computes the transaction-side sums for a balance
// snapshot in one round trip, served by the (seller_id, status) index.
func (d Datasource) GetEarningsSummary(ctx context.Context, sellerID string) (*model.EarningsSummary, error) {
	ctx, span := otel.Tracer("ledger.database").Start(ctx, "Summing seller earnings")
	defer span.End()

	summary := &model.EarningsSummary{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(gross_amount) FILTER (WHERE status = 'completed'), 0),
			COALESCE(SUM(platform_fee) FILTER (WHERE status = 'completed'), 0),
			COALESCE(SUM(net_amount) FILTER (WHERE status = 'completed'), 0),
			COALESCE(SUM(gross_amount) FILTER (WHERE status = 'pending'), 0)
		FROM transactions
		WHERE seller_id = $1
	`, sellerID).Scan(&summary.CompletedGross, &summary.CompletedFees, &summary.CompletedNet, &summary.PendingGross)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to sum seller earnings", err)
	}

	return summary, nil
}

const transactionCacheTTL = 5 * time.Minute

func transactionCacheKey(id string) string {
	return "txn:" + id
}

// cacheTransaction writes a row through to the cache. Settled transactions
// are immutable, so the cached copy can only go stale between pending and
// its single settlement write, which also refreshes it.
func (d Datasource) cacheTransaction(ctx context.Context, txn *model.Transaction) {
	if d.Cache == nil {
		return
	}
	if err := d.Cache.Set(ctx, transactionCacheKey(txn.TransactionID), txn, transactionCacheTTL); err != nil {
		log.Printf("Failed to cache transaction %s: %v", txn.TransactionID, err)
	}
}
