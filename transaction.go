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

package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/sokomart/ledger/internal/apierror"
	"github.com/sokomart/ledger/internal/notification"
	"github.com/sokomart/ledger/model"
)

var (
	tracer = otel.Tracer("seller.ledger")
)

func logAndRecordError(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	logrus.Error(msg, err)
	return err
}

// RecordEarning is the ingestion entry point for the order-settlement
// collaborator. It appends one transaction per settled order line.
// Ingestion is idempotent per (sellerID, orderID): redelivering the same
// settlement event returns the stored transaction unchanged.
func (l *Ledger) RecordEarning(ctx context.Context, sellerID, orderID, orderNumber string, grossAmount int64, feeRate float64, outcome model.TransactionStatus) (*model.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Recording seller earning")
	defer span.End()

	if sellerID == "" || orderID == "" {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "seller id and order id are required", nil)
	}
	if grossAmount <= 0 {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "gross amount must be positive", nil)
	}
	if feeRate < 0 || feeRate > 100 {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("platform fee rate %v is out of range", feeRate), nil)
	}
	if outcome != "" && !outcome.Valid() {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("unknown settlement outcome '%s'", outcome), nil)
	}

	transaction := model.NewTransaction(sellerID, orderID, orderNumber, grossAmount, feeRate)
	if outcome != "" && outcome != model.TransactionStatusPending {
		now := time.Now()
		transaction.Status = outcome
		transaction.SettledAt = &now
	}

	saved, err := l.datasource.RecordTransaction(ctx, transaction)
	if err != nil {
		var apiErr apierror.APIError
		if errors.As(err, &apiErr) && apiErr.Code == apierror.ErrConflict {
			// Redelivered settlement event. Recover with the stored row so
			// the collaborator can retry without coordination.
			span.AddEvent("duplicate settlement event ignored")
			logrus.Infof("duplicate settlement event for seller %s order %s", sellerID, orderID)
			return l.datasource.GetTransactionByOrder(ctx, sellerID, orderID)
		}
		return nil, logAndRecordError(span, "error recording earning: ", err)
	}

	l.postTransactionActions(ctx, saved)
	return saved, nil
}

// MarkTransactionSettled applies the completed/failed outcome delivered by
// the order-settlement collaborator. Only pending transactions move.
func (l *Ledger) MarkTransactionSettled(ctx context.Context, transactionID string, outcome model.TransactionStatus) (*model.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Settling transaction")
	defer span.End()

	if !outcome.Settled() {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput,
			fmt.Sprintf("settlement outcome must be completed or failed, got '%s'", outcome), nil)
	}

	transaction, err := l.datasource.MarkTransactionSettled(ctx, transactionID, outcome, time.Now())
	if err != nil {
		return nil, logAndRecordError(span, "error settling transaction: ", err)
	}

	l.postTransactionActions(ctx, transaction)
	return transaction, nil
}

func (l *Ledger) GetTransaction(ctx context.Context, transactionID string) (*model.Transaction, error) {
	return l.datasource.GetTransaction(ctx, transactionID)
}

// ListTransactions returns one page of a seller's ledger plus the stable
// total count for the filter.
func (l *Ledger) ListTransactions(ctx context.Context, sellerID string, filter model.TransactionFilter) ([]*model.Transaction, int64, error) {
	ctx, span := tracer.Start(ctx, "Listing transactions")
	defer span.End()

	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("unknown transaction status '%s'", filter.Status), nil)
	}

	return l.datasource.ListTransactionsForSeller(ctx, sellerID, filter)
}

func (l *Ledger) postTransactionActions(ctx context.Context, transaction *model.Transaction) {
	go func() {
		event := "transaction.recorded"
		if transaction.Status.Settled() {
			event = "transaction." + string(transaction.Status)
		}
		err := l.queue.EnqueueWebhook(context.WithoutCancel(ctx), NewWebhook{
			Event:   event,
			Payload: transaction,
		})
		if err != nil {
			notification.NotifyError(err)
		}
	}()
}
