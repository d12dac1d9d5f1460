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
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sirupsen/logrus"

	"github.com/sokomart/ledger/config"
	"github.com/sokomart/ledger/internal/apierror"
	redlock "github.com/sokomart/ledger/internal/lock"
	"github.com/sokomart/ledger/internal/notification"
	"github.com/sokomart/ledger/model"
)

// RequestPayout reserves part of a seller's available balance behind a
// per-seller lock, so concurrent requests cannot both pass the balance
// check. The created payout starts pending and its amount is excluded from
// the available balance until the payout reaches a terminal state.
func (l *Ledger) RequestPayout(ctx context.Context, sellerID string, amount int64, method model.PayoutMethod, details model.AccountDetails) (*model.Payout, error) {
	ctx, span := tracer.Start(ctx, "Requesting payout")
	defer span.End()

	conf, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	if sellerID == "" {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "seller id is required", nil)
	}
	if amount <= 0 {
		return nil, apierror.NewAPIError(apierror.ErrInvalidAmount, "payout amount must be positive", nil)
	}
	if amount < conf.Payout.MinimumAmount {
		return nil, apierror.NewAPIError(apierror.ErrInvalidAmount,
			fmt.Sprintf("payout amount %d is below the minimum of %d", amount, conf.Payout.MinimumAmount), nil)
	}
	if err := validateAccountDetails(method, details); err != nil {
		return nil, err
	}

	lockTimeout := time.Duration(conf.Payout.LockTimeoutSec) * time.Second
	locker := redlock.NewLocker(l.redis, "payout:seller:"+sellerID, model.GenerateUUIDWithSuffix("loc"))
	if err := locker.WaitLock(ctx, lockTimeout, lockTimeout); err != nil {
		return nil, logAndRecordError(span, "error acquiring payout lock: ", err)
	}
	defer func() {
		if err := locker.Unlock(context.WithoutCancel(ctx)); err != nil {
			logrus.Error("error releasing payout lock: ", err)
		}
	}()

	balance, err := l.ComputeBalance(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if amount > balance.Available {
		return nil, apierror.NewAPIError(apierror.ErrInsufficientBalance,
			fmt.Sprintf("payout amount %d exceeds available balance %d", amount, balance.Available), nil)
	}

	payout, err := l.datasource.CreatePayout(ctx, model.NewPayout(sellerID, amount, method, details))
	if err != nil {
		return nil, logAndRecordError(span, "error creating payout: ", err)
	}

	l.postPayoutActions(ctx, payout, "", payout.Status)
	return payout, nil
}

// CancelPayout cancels a payout on behalf of its seller and releases the
// reservation. Only pending and processing payouts can be cancelled, and
// the row-level guard resolves the race against a concurrent advance.
func (l *Ledger) CancelPayout(ctx context.Context, payoutID, sellerID string) (*model.Payout, error) {
	ctx, span := tracer.Start(ctx, "Cancelling payout")
	defer span.End()

	payout, err := l.datasource.GetPayout(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout.SellerID != sellerID {
		return nil, apierror.NewAPIError(apierror.ErrForbidden,
			fmt.Sprintf("payout '%s' does not belong to seller '%s'", payoutID, sellerID), nil)
	}
	if !model.CanTransition(payout.Status, model.PayoutStatusCancelled) {
		return nil, apierror.NewAPIError(apierror.ErrInvalidTransition,
			fmt.Sprintf("payout '%s' is %s and can no longer be cancelled", payoutID, payout.Status), nil)
	}

	fromStatus := payout.Status
	now := time.Now()
	payout.Status = model.PayoutStatusCancelled
	payout.CompletedAt = &now

	if err := l.datasource.UpdatePayoutStatus(ctx, payout, fromStatus); err != nil {
		return nil, logAndRecordError(span, "error cancelling payout: ", err)
	}

	l.postPayoutActions(ctx, payout, fromStatus, payout.Status)
	return payout, nil
}

// AdvancePayout applies a processor callback to the payout state machine.
// begin_processing moves pending to processing; settle moves processing to
// paid or failed. Each transition is guarded by the payout's expected
// current state, so a concurrent cancel or duplicate callback loses cleanly.
func (l *Ledger) AdvancePayout(ctx context.Context, payoutID string, event model.PayoutEvent) (*model.Payout, error) {
	ctx, span := tracer.Start(ctx, "Advancing payout")
	defer span.End()

	payout, err := l.datasource.GetPayout(ctx, payoutID)
	if err != nil {
		return nil, err
	}

	fromStatus := payout.Status
	now := time.Now()

	switch event.Type {
	case model.PayoutEventBeginProcessing:
		payout.Status = model.PayoutStatusProcessing
		payout.ProcessedAt = &now
	case model.PayoutEventSettle:
		if event.Success {
			payout.Status = model.PayoutStatusPaid
			payout.TransactionRef = event.TransactionRef
		} else {
			payout.Status = model.PayoutStatusFailed
			payout.FailureReason = event.Reason
		}
		payout.CompletedAt = &now
	default:
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput,
			fmt.Sprintf("unknown payout event type '%s'", event.Type), nil)
	}

	if !model.CanTransition(fromStatus, payout.Status) {
		return nil, apierror.NewAPIError(apierror.ErrInvalidTransition,
			fmt.Sprintf("payout '%s' cannot move from %s to %s", payoutID, fromStatus, payout.Status), nil)
	}

	if err := l.datasource.UpdatePayoutStatus(ctx, payout, fromStatus); err != nil {
		return nil, logAndRecordError(span, "error advancing payout: ", err)
	}

	l.postPayoutActions(ctx, payout, fromStatus, payout.Status)
	return payout, nil
}

func (l *Ledger) GetPayout(ctx context.Context, payoutID string) (*model.Payout, error) {
	return l.datasource.GetPayout(ctx, payoutID)
}

func (l *Ledger) ListPayouts(ctx context.Context, sellerID string, filter model.PayoutFilter) ([]*model.Payout, int64, error) {
	ctx, span := tracer.Start(ctx, "Listing payouts")
	defer span.End()

	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("unknown payout status '%s'", filter.Status), nil)
	}

	return l.datasource.ListPayoutsForSeller(ctx, sellerID, filter)
}

// validateAccountDetails enforces the method-specific destination fields.
func validateAccountDetails(method model.PayoutMethod, details model.AccountDetails) error {
	if !method.Valid() {
		return apierror.NewAPIError(apierror.ErrInvalidAccount,
			fmt.Sprintf("unknown payout method '%s'", method), nil)
	}

	var err error
	switch method {
	case model.PayoutMethodBankTransfer:
		err = validation.ValidateStruct(&details,
			validation.Field(&details.AccountNumber, validation.Required, validation.Length(6, 34)),
			validation.Field(&details.RoutingCode, validation.Required),
			validation.Field(&details.BankName, validation.Required),
			validation.Field(&details.HolderName, validation.Required),
		)
	case model.PayoutMethodUPI:
		err = validation.ValidateStruct(&details,
			validation.Field(&details.UPIID, validation.Required, validation.Length(3, 256)),
		)
	case model.PayoutMethodWallet:
		err = validation.ValidateStruct(&details,
			validation.Field(&details.WalletID, validation.Required),
		)
	}
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInvalidAccount, err.Error(), err)
	}
	return nil
}

// postPayoutActions emits the settlement event for a state change. Delivery
// is at least once and never blocks or fails the transition itself.
func (l *Ledger) postPayoutActions(ctx context.Context, payout *model.Payout, from, to model.PayoutStatus) {
	go func() {
		bg := context.WithoutCancel(ctx)
		event := NewWebhook{
			Event: "payout." + string(to),
			Payload: model.SettlementEvent{
				PayoutID:   payout.PayoutID,
				SellerID:   payout.SellerID,
				FromStatus: from,
				ToStatus:   to,
				Amount:     payout.Amount,
				Timestamp:  time.Now(),
			},
		}
		if err := l.queue.EnqueueWebhook(bg, event); err != nil {
			notification.NotifyError(err)
		}
		if to == model.PayoutStatusPaid {
			completed := NewWebhook{Event: "payout.completed", Payload: payout}
			if err := l.queue.EnqueueWebhook(bg, completed); err != nil {
				notification.NotifyError(err)
			}
		}
	}()
}
