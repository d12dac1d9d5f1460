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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokomart/ledger/config"
	"github.com/sokomart/ledger/internal/apierror"
	"github.com/sokomart/ledger/model"
)

func seedCompletedEarning(t *testing.T, l *Ledger, sellerID string, gross int64) *model.Transaction {
	t.Helper()
	txn, err := l.RecordEarning(context.Background(), sellerID, model.GenerateUUIDWithSuffix("ord"), "", gross, 10, model.TransactionStatusCompleted)
	require.NoError(t, err)
	return txn
}

func walletDetails() model.AccountDetails {
	return model.AccountDetails{WalletID: "wal_123"}
}

func TestRequestPayoutReservesBalance(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	seedCompletedEarning(t, l, "seller_1", 10000) // 9000 net

	payout, err := l.RequestPayout(ctx, "seller_1", 9000, model.PayoutMethodWallet, walletDetails())
	require.NoError(t, err)
	assert.Equal(t, model.PayoutStatusPending, payout.Status)

	balance, err := l.ComputeBalance(ctx, "seller_1")
	require.NoError(t, err)
	assert.Equal(t, int64(9000), balance.Reserved)
	assert.Equal(t, int64(0), balance.Available)

	// Even one more minor unit is over the reserved-adjusted balance.
	_, err = l.RequestPayout(ctx, "seller_1", 1, model.PayoutMethodWallet, walletDetails())
	assert.Equal(t, apierror.ErrInsufficientBalance, apierror.CodeOf(err))
}

func TestRequestPayoutValidation(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	seedCompletedEarning(t, l, "seller_1", 10000)

	_, err := l.RequestPayout(ctx, "seller_1", 0, model.PayoutMethodWallet, walletDetails())
	assert.Equal(t, apierror.ErrInvalidAmount, apierror.CodeOf(err))

	_, err = l.RequestPayout(ctx, "seller_1", 500, "cheque", walletDetails())
	assert.Equal(t, apierror.ErrInvalidAccount, apierror.CodeOf(err))

	_, err = l.RequestPayout(ctx, "seller_1", 500, model.PayoutMethodUPI, model.AccountDetails{})
	assert.Equal(t, apierror.ErrInvalidAccount, apierror.CodeOf(err))

	_, err = l.RequestPayout(ctx, "seller_1", 500, model.PayoutMethodBankTransfer, model.AccountDetails{AccountNumber: "12345678"})
	assert.Equal(t, apierror.ErrInvalidAccount, apierror.CodeOf(err))
}

func TestRequestPayoutBelowMinimum(t *testing.T) {
	l, _ := newTestLedger(t)

	config.MockConfig(&config.Configuration{
		Payout: config.PayoutConfig{MinimumAmount: 1000},
	})
	seedCompletedEarning(t, l, "seller_1", 10000)

	_, err := l.RequestPayout(context.Background(), "seller_1", 999, model.PayoutMethodWallet, walletDetails())
	assert.Equal(t, apierror.ErrInvalidAmount, apierror.CodeOf(err))
}

func TestCancelPayoutReleasesReservation(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	seedCompletedEarning(t, l, "seller_1", 10000)
	payout, err := l.RequestPayout(ctx, "seller_1", 4000, model.PayoutMethodWallet, walletDetails())
	require.NoError(t, err)

	cancelled, err := l.CancelPayout(ctx, payout.PayoutID, "seller_1")
	require.NoError(t, err)
	assert.Equal(t, model.PayoutStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CompletedAt)

	balance, err := l.ComputeBalance(ctx, "seller_1")
	require.NoError(t, err)
	assert.Equal(t, int64(9000), balance.Available)
	assert.Equal(t, int64(0), balance.Reserved)
}

func TestCancelPayoutOwnership(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	seedCompletedEarning(t, l, "seller_1", 10000)
	payout, err := l.RequestPayout(ctx, "seller_1", 4000, model.PayoutMethodWallet, walletDetails())
	require.NoError(t, err)

	_, err = l.CancelPayout(ctx, payout.PayoutID, "seller_2")
	assert.Equal(t, apierror.ErrForbidden, apierror.CodeOf(err))

	_, err = l.CancelPayout(ctx, "pyt_missing", "seller_1")
	assert.Equal(t, apierror.ErrNotFound, apierror.CodeOf(err))
}

func TestAdvancePayoutToPaid(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	seedCompletedEarning(t, l, "seller_1", 10000)
	payout, err := l.RequestPayout(ctx, "seller_1", 4000, model.PayoutMethodWallet, walletDetails())
	require.NoError(t, err)

	processing, err := l.AdvancePayout(ctx, payout.PayoutID, model.PayoutEvent{Type: model.PayoutEventBeginProcessing})
	require.NoError(t, err)
	assert.Equal(t, model.PayoutStatusProcessing, processing.Status)
	require.NotNil(t, processing.ProcessedAt)

	paid, err := l.AdvancePayout(ctx, payout.PayoutID, model.PayoutEvent{
		Type:           model.PayoutEventSettle,
		Success:        true,
		TransactionRef: "bank_ref_42",
	})
	require.NoError(t, err)
	assert.Equal(t, model.PayoutStatusPaid, paid.Status)
	assert.Equal(t, "bank_ref_42", paid.TransactionRef)
	require.NotNil(t, paid.CompletedAt)

	// Paid money moves from reserved to paid out and stays unavailable.
	balance, err := l.ComputeBalance(ctx, "seller_1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance.Reserved)
	assert.Equal(t, int64(4000), balance.PaidOut)
	assert.Equal(t, int64(5000), balance.Available)

	// Terminal payouts absorb no further events.
	_, err = l.AdvancePayout(ctx, payout.PayoutID, model.PayoutEvent{Type: model.PayoutEventSettle, Success: true})
	assert.Equal(t, apierror.ErrInvalidTransition, apierror.CodeOf(err))
	_, err = l.CancelPayout(ctx, payout.PayoutID, "seller_1")
	assert.Equal(t, apierror.ErrInvalidTransition, apierror.CodeOf(err))
}

func TestAdvancePayoutFailureReleasesReservation(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	seedCompletedEarning(t, l, "seller_1", 10000)
	payout, err := l.RequestPayout(ctx, "seller_1", 4000, model.PayoutMethodWallet, walletDetails())
	require.NoError(t, err)

	_, err = l.AdvancePayout(ctx, payout.PayoutID, model.PayoutEvent{Type: model.PayoutEventBeginProcessing})
	require.NoError(t, err)

	failed, err := l.AdvancePayout(ctx, payout.PayoutID, model.PayoutEvent{
		Type:   model.PayoutEventSettle,
		Reason: "beneficiary account closed",
	})
	require.NoError(t, err)
	assert.Equal(t, model.PayoutStatusFailed, failed.Status)
	assert.Equal(t, "beneficiary account closed", failed.FailureReason)

	balance, err := l.ComputeBalance(ctx, "seller_1")
	require.NoError(t, err)
	assert.Equal(t, int64(9000), balance.Available)
}

func TestAdvancePayoutOrdering(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	seedCompletedEarning(t, l, "seller_1", 10000)
	payout, err := l.RequestPayout(ctx, "seller_1", 4000, model.PayoutMethodWallet, walletDetails())
	require.NoError(t, err)

	// A settle before processing is out of order.
	_, err = l.AdvancePayout(ctx, payout.PayoutID, model.PayoutEvent{Type: model.PayoutEventSettle, Success: true})
	assert.Equal(t, apierror.ErrInvalidTransition, apierror.CodeOf(err))

	_, err = l.AdvancePayout(ctx, payout.PayoutID, model.PayoutEvent{Type: "refund"})
	assert.Equal(t, apierror.ErrInvalidInput, apierror.CodeOf(err))
}

func TestRequestPayoutConcurrent(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	seedCompletedEarning(t, l, "seller_1", 10000) // 9000 net available

	// Two 7000 requests against 9000: the per-seller lock serializes the
	// balance check, so exactly one wins.
	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.RequestPayout(ctx, "seller_1", 7000, model.PayoutMethodWallet, walletDetails())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded, rejected int
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.Equal(t, apierror.ErrInsufficientBalance, apierror.CodeOf(err))
			rejected++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)

	balance, err := l.ComputeBalance(ctx, "seller_1")
	require.NoError(t, err)
	assert.Equal(t, int64(7000), balance.Reserved)
	assert.Equal(t, int64(2000), balance.Available)
}

func TestListPayouts(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	seedCompletedEarning(t, l, "seller_1", 100000)
	for i := 0; i < 3; i++ {
		_, err := l.RequestPayout(ctx, "seller_1", 1000, model.PayoutMethodWallet, walletDetails())
		require.NoError(t, err)
	}

	payouts, total, err := l.ListPayouts(ctx, "seller_1", model.PayoutFilter{Status: model.PayoutStatusPending})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, payouts, 3)

	_, _, err = l.ListPayouts(ctx, "seller_1", model.PayoutFilter{Status: "archived"})
	assert.Equal(t, apierror.ErrInvalidInput, apierror.CodeOf(err))
}
