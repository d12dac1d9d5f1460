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

// RecordEarning is the request body for recording a settled order line on a
// seller's ledger.
type RecordEarning struct {
	SellerID        string  `json:"seller_id"`
	OrderID         string  `json:"order_id"`
	OrderNumber     string  `json:"order_number"`
	GrossAmount     int64   `json:"gross_amount"`
	PlatformFeeRate float64 `json:"platform_fee_rate"`
	Status          string  `json:"status"`
}

func (r *RecordEarning) ValidateRecordEarning() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.SellerID, validation.Required),
		validation.Field(&r.OrderID, validation.Required),
		validation.Field(&r.GrossAmount, validation.Required, validation.Min(1)),
		validation.Field(&r.PlatformFeeRate, validation.Min(0.0), validation.Max(100.0)),
		validation.Field(&r.Status, validation.In("", "pending", "completed", "failed")),
	)
}

func (r *RecordEarning) Outcome() model.TransactionStatus {
	return model.TransactionStatus(r.Status)
}

// SettleTransaction carries the settlement outcome for a pending transaction.
type SettleTransaction struct {
	Status string `json:"status"`
}

func (s *SettleTransaction) ValidateSettleTransaction() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Status, validation.Required, validation.In("completed", "failed")),
	)
}

func (s *SettleTransaction) Outcome() model.TransactionStatus {
	return model.TransactionStatus(s.Status)
}
