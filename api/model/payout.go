/*
Copyright 2024 Sokomart Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/sokomart/ledger/model"
)

// RequestPayout is the request body for a seller withdrawal. Which account
// detail fields are required depends on the method; that check happens in
// the service layer where the method semantics live.
type RequestPayout struct {
	SellerID       string               `json:"seller_id"`
	Amount         int64                `json:"amount"`
	Method         string               `json:"method"`
	AccountDetails model.AccountDetails  `json:"account_details"`
}

func (r *RequestPayout) ValidateRequestPayout() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.SellerID, validation.Required),
		validation.Field(&r.Amount, validation.Required, validation.Min(1)),
		validation.Field(&r.Method, validation.Required, validation.In("bank_transfer", "upi", "wallet")),
	)
}

// CancelPayout identifies the seller asking for the cancellation.
type CancelPayout struct {
	SellerID string `json:"seller_id"`
}

func (c *CancelPayout) ValidateCancelPayout() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SellerID, validation.Required),
	)
}

// AdvancePayout is the processor callback body driving the payout state
// machine.
type AdvancePayout struct {
	Type           string `json:"type"`
	Success        bool   `json:"success"`
	TransactionRef string `json:"transaction_ref"`
	Reason         string `json:"reason"`
}

func (a *AdvancePayout) ValidateAdvancePayout() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.Type, validation.Required, validation.In("begin_processing", "settle")),
	)
}

func (a *AdvancePayout) ToPayoutEvent() model.PayoutEvent {
	return model.PayoutEvent{
		Type:           model.PayoutEventType(a.Type),
		Success:        a.Success,
		TransactionRef: a.TransactionRef,
		Reason:         a.Reason,
	}
}
