package database

import (
	"context"
	"time"

	"github.com/sokomart/ledger/model"
)

// IDataSource is the persistence boundary the service layer depends on.
type IDataSource interface {
	transaction
	payout
}

type transaction interface {
	RecordTransaction(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	GetTransactionByOrder(ctx context.Context, sellerID, orderID string) (*model.Transaction, error)
	MarkTransactionSettled(ctx context.Context, id string, outcome model.TransactionStatus, settledAt time.Time) (*model.Transaction, error)
	ListTransactionsForSeller(ctx context.Context, sellerID string, filter model.TransactionFilter) ([]*model.Transaction, int64, error)
	GetEarningsSummary(ctx context.Context, sellerID string) (*model.EarningsSummary, error)
}

type payout interface {
	CreatePayout(ctx context.Context, p *model.Payout) (*model.Payout, error)
	GetPayout(ctx context.Context, id string) (*model.Payout, error)
	UpdatePayoutStatus(ctx context.Context, p *model.Payout, expected model.PayoutStatus) error
	ListPayoutsForSeller(ctx context.Context, sellerID string, filter model.PayoutFilter) ([]*model.Payout, int64, error)
	GetPayoutSummary(ctx context.Context, sellerID string) (*model.PayoutSummary, error)
}
