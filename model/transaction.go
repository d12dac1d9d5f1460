package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus mirrors order/payment settlement, not payout status.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusCompleted, TransactionStatusFailed:
		return true
	}
	return false
}

// Settled reports whether the transaction has reached a settlement outcome.
// Settled transactions are immutable.
func (s TransactionStatus) Settled() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed
}

// Transaction is one seller earning derived from a settled order line.
// All amounts are integer minor units. PlatformFeeRate is a percentage
// captured at ingestion time so historical fee math survives later
// commission changes on the seller profile.
type Transaction struct {
	ID              int64                  `json:"-"`
	TransactionID   string                 `json:"transaction_id"`
	SellerID        string                 `json:"seller_id"`
	OrderID         string                 `json:"order_id"`
	OrderNumber     string                 `json:"order_number"`
	GrossAmount     int64                  `json:"gross_amount"`
	PlatformFeeRate float64                `json:"platform_fee_rate"`
	PlatformFee     int64                  `json:"platform_fee"`
	NetAmount       int64                  `json:"net_amount"`
	Status          TransactionStatus      `json:"status"`
	CreatedAt       time.Time              `json:"created_at"`
	SettledAt       *time.Time             `json:"settled_at,omitempty"`
	MetaData        map[string]interface{} `json:"meta_data,omitempty"`
}

// ComputePlatformFee returns gross * rate% rounded half-up to the nearest
// minor unit. Kept in decimal end to end; the float rate is normalized once.
func ComputePlatformFee(grossAmount int64, feeRate float64) int64 {
	return decimal.NewFromInt(grossAmount).
		Mul(decimal.NewFromFloat(feeRate)).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}

// NewTransaction builds a ledger entry for a settled order line. The fee/net
// split is derived here and nowhere else, so fee + net == gross holds by
// construction.
func NewTransaction(sellerID, orderID, orderNumber string, grossAmount int64, feeRate float64) *Transaction {
	fee := ComputePlatformFee(grossAmount, feeRate)
	return &Transaction{
		TransactionID:   GenerateUUIDWithSuffix("txn"),
		SellerID:        sellerID,
		OrderID:         orderID,
		OrderNumber:     orderNumber,
		GrossAmount:     grossAmount,
		PlatformFeeRate: feeRate,
		PlatformFee:     fee,
		NetAmount:       grossAmount - fee,
		Status:          TransactionStatusPending,
		CreatedAt:       time.Now(),
	}
}

// TransactionFilter narrows ledger queries. Zero values mean "no filter".
type TransactionFilter struct {
	Status    TransactionStatus
	From      time.Time
	To        time.Time
	MinAmount int64
	MaxAmount int64
	Page      int
	Limit     int
}

func (f *TransactionFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
}

func (f TransactionFilter) Offset() int64 {
	return int64(f.Page-1) * int64(f.Limit)
}
