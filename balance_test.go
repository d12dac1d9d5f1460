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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokomart/ledger/internal/apierror"
	"github.com/sokomart/ledger/model"
)

func TestComputeBalanceUnknownSellerIsZero(t *testing.T) {
	l, _ := newTestLedger(t)

	balance, err := l.ComputeBalance(context.Background(), "seller_unknown")
	require.NoError(t, err)

	assert.Equal(t, int64(0), balance.TotalRevenue)
	assert.Equal(t, int64(0), balance.Available)
	assert.Equal(t, int64(0), balance.Reserved)
}

func TestComputeBalanceFromLedger(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	// 10000 gross at 10% completed, 5000 gross still pending.
	_, err := l.RecordEarning(ctx, "seller_1", "order_1", "SO-1001", 10000, 10, model.TransactionStatusCompleted)
	require.NoError(t, err)
	_, err = l.RecordEarning(ctx, "seller_1", "order_2", "SO-1002", 5000, 10, "")
	require.NoError(t, err)

	balance, err := l.ComputeBalance(ctx, "seller_1")
	require.NoError(t, err)

	assert.Equal(t, int64(15000), balance.TotalRevenue)
	assert.Equal(t, int64(10000), balance.CompletedRevenue)
	assert.Equal(t, int64(5000), balance.PendingRevenue)
	assert.Equal(t, int64(1000), balance.PlatformFees)
	assert.Equal(t, int64(9000), balance.Available)
}

func TestComputeBalanceExcludesFailedSettlement(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	txn, err := l.RecordEarning(ctx, "seller_1", "order_1", "SO-1001", 10000, 10, "")
	require.NoError(t, err)
	_, err = l.MarkTransactionSettled(ctx, txn.TransactionID, model.TransactionStatusFailed)
	require.NoError(t, err)

	balance, err := l.ComputeBalance(ctx, "seller_1")
	require.NoError(t, err)

	assert.Equal(t, int64(0), balance.CompletedRevenue)
	assert.Equal(t, int64(0), balance.PendingRevenue)
	assert.Equal(t, int64(0), balance.Available)
}

func TestComputeBalanceNegativeAvailableIsViolation(t *testing.T) {
	l, ds := newTestLedger(t)
	ctx := context.Background()

	_, err := l.RecordEarning(ctx, "seller_1", "order_1", "SO-1001", 10000, 10, model.TransactionStatusCompleted)
	require.NoError(t, err)

	// Plant a reservation that bypasses the balance check.
	_, err = ds.CreatePayout(ctx, model.NewPayout("seller_1", 20000, model.PayoutMethodWallet, model.AccountDetails{WalletID: "wal_1"}))
	require.NoError(t, err)

	_, err = l.ComputeBalance(ctx, "seller_1")
	assert.Equal(t, apierror.ErrInvariantViolation, apierror.CodeOf(err))
}
