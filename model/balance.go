package model

import "time"

// Balance is a derived snapshot of a seller's earnings position. It is
// computed from the ledger and payout history, never stored as a mutable
// row of its own.
type Balance struct {
	SellerID         string    `json:"seller_id"`
	TotalRevenue     int64     `json:"total_revenue"`
	CompletedRevenue int64     `json:"completed_revenue"`
	PendingRevenue   int64     `json:"pending_revenue"`
	PlatformFees     int64     `json:"platform_fees"`
	Reserved         int64     `json:"reserved"`
	PaidOut          int64     `json:"paid_out"`
	Available        int64     `json:"available"`
	ComputedAt       time.Time `json:"computed_at"`
}

// EarningsSummary holds the transaction-side sums a balance is built from.
type EarningsSummary struct {
	CompletedGross int64
	CompletedFees  int64
	CompletedNet   int64
	PendingGross   int64
}

// PayoutSummary holds the payout-side sums: reserved covers pending and
// processing payouts, paid out covers paid ones.
type PayoutSummary struct {
	Reserved int64
	PaidOut  int64
}
