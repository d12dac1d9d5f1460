package model

import "time"

// SettlementEvent is emitted on every payout state transition. Delivery is
// at-least-once; consumers must be idempotent on (payout_id, to_status).
type SettlementEvent struct {
	PayoutID   string       `json:"payout_id"`
	SellerID   string       `json:"seller_id"`
	FromStatus PayoutStatus `json:"from_status"`
	ToStatus   PayoutStatus `json:"to_status"`
	Amount     int64        `json:"amount"`
	Timestamp  time.Time    `json:"timestamp"`
}

// LowBalanceEvent is the summary warning fired when a seller's available
// balance drops below the configured threshold.
type LowBalanceEvent struct {
	SellerID  string    `json:"seller_id"`
	Available int64     `json:"available"`
	Threshold int64     `json:"threshold"`
	Timestamp time.Time `json:"timestamp"`
}
