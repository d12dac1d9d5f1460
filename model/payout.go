package model

import (
	"encoding/json"
	"time"
)

// PayoutStatus is the closed set of payout states. paid, failed and
// cancelled are terminal.
type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "pending"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusPaid       PayoutStatus = "paid"
	PayoutStatusFailed     PayoutStatus = "failed"
	PayoutStatusCancelled  PayoutStatus = "cancelled"
)

func (s PayoutStatus) Valid() bool {
	switch s {
	case PayoutStatusPending, PayoutStatusProcessing, PayoutStatusPaid, PayoutStatusFailed, PayoutStatusCancelled:
		return true
	}
	return false
}

// Terminal states release or permanently consume the balance reservation.
func (s PayoutStatus) Terminal() bool {
	return s == PayoutStatusPaid || s == PayoutStatusFailed || s == PayoutStatusCancelled
}

// Reserving reports whether a payout in this state holds a reservation
// against the seller's available balance.
func (s PayoutStatus) Reserving() bool {
	return s == PayoutStatusPending || s == PayoutStatusProcessing
}

// payoutTransitions is the full state machine. Anything not listed here is
// an invalid transition, including every move out of a terminal state.
var payoutTransitions = map[PayoutStatus][]PayoutStatus{
	PayoutStatusPending:    {PayoutStatusProcessing, PayoutStatusCancelled},
	PayoutStatusProcessing: {PayoutStatusPaid, PayoutStatusFailed, PayoutStatusCancelled},
}

// CanTransition reports whether from -> to is a legal payout transition.
func CanTransition(from, to PayoutStatus) bool {
	for _, next := range payoutTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PayoutMethod is how the seller wants to be paid.
type PayoutMethod string

const (
	PayoutMethodBankTransfer PayoutMethod = "bank_transfer"
	PayoutMethodUPI          PayoutMethod = "upi"
	PayoutMethodWallet       PayoutMethod = "wallet"
)

func (m PayoutMethod) Valid() bool {
	switch m {
	case PayoutMethodBankTransfer, PayoutMethodUPI, PayoutMethodWallet:
		return true
	}
	return false
}

// AccountDetails carries the method-specific destination fields. The ledger
// stores it opaquely; which fields are required depends on the method and is
// enforced at request validation time.
type AccountDetails struct {
	AccountNumber string `json:"account_number,omitempty"`
	RoutingCode   string `json:"routing_code,omitempty"`
	BankName      string `json:"bank_name,omitempty"`
	HolderName    string `json:"holder_name,omitempty"`
	UPIID         string `json:"upi_id,omitempty"`
	WalletID      string `json:"wallet_id,omitempty"`
}

// Payout is a seller-initiated withdrawal request against accumulated net
// revenue. While pending or processing its amount is reserved and excluded
// from the seller's available balance.
type Payout struct {
	ID             int64          `json:"-"`
	PayoutID       string         `json:"payout_id"`
	SellerID       string         `json:"seller_id"`
	Amount         int64          `json:"amount"`
	Method         PayoutMethod   `json:"method"`
	AccountDetails AccountDetails `json:"account_details"`
	Status         PayoutStatus   `json:"status"`
	RequestedAt    time.Time      `json:"requested_at"`
	ProcessedAt    *time.Time     `json:"processed_at,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	FailureReason  string         `json:"failure_reason,omitempty"`
	TransactionRef string         `json:"transaction_ref,omitempty"`
}

func NewPayout(sellerID string, amount int64, method PayoutMethod, details AccountDetails) *Payout {
	return &Payout{
		PayoutID:       GenerateUUIDWithSuffix("pyt"),
		SellerID:       sellerID,
		Amount:         amount,
		Method:         method,
		AccountDetails: details,
		Status:         PayoutStatusPending,
		RequestedAt:    time.Now(),
	}
}

func (p *Payout) ToJSON() ([]byte, error) {
	return json.Marshal(p)
}

// PayoutEventType identifies what the processor is reporting back about a
// payout it was handed.
type PayoutEventType string

const (
	// PayoutEventBeginProcessing moves a pending payout into processing.
	PayoutEventBeginProcessing PayoutEventType = "begin_processing"
	// PayoutEventSettle resolves a processing payout as paid or failed
	// depending on Success.
	PayoutEventSettle PayoutEventType = "settle"
)

// PayoutEvent is the processor callback payload used to drive a payout
// through its state machine.
type PayoutEvent struct {
	Type           PayoutEventType `json:"type"`
	Success        bool            `json:"success"`
	TransactionRef string          `json:"transaction_ref,omitempty"`
	Reason         string          `json:"reason,omitempty"`
}

// PayoutFilter narrows payout history queries.
type PayoutFilter struct {
	Status PayoutStatus
	Page   int
	Limit  int
}

func (f *PayoutFilter) Normalize() {
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

func (f PayoutFilter) Offset() int64 {
	return int64(f.Page-1) * int64(f.Limit)
}
