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
	"sort"
	"sync"
	"time"

	"github.com/sokomart/ledger/internal/apierror"
	"github.com/sokomart/ledger/model"
)

// MockDataSource is an in-memory datasource used in tests. It keeps the
// same uniqueness and compare-and-swap semantics as the postgres layer so
// concurrency tests exercise the real arbitration paths.
type MockDataSource struct {
	mu           sync.Mutex
	transactions map[string]*model.Transaction
	orderIndex   map[string]string
	payouts      map[string]*model.Payout
}

func NewMockDataSource() *MockDataSource {
	return &MockDataSource{
		transactions: make(map[string]*model.Transaction),
		orderIndex:   make(map[string]string),
		payouts:      make(map[string]*model.Payout),
	}
}

func orderKey(sellerID, orderID string) string {
	return sellerID + "/" + orderID
}

func (m *MockDataSource) RecordTransaction(_ context.Context, txn *model.Transaction) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := orderKey(txn.SellerID, txn.OrderID)
	if _, ok := m.orderIndex[key]; ok {
		return nil, apierror.NewAPIError(apierror.ErrConflict,
			fmt.Sprintf("a transaction for seller '%s' order '%s' already exists", txn.SellerID, txn.OrderID), nil)
	}
	cp := *txn
	m.transactions[txn.TransactionID] = &cp
	m.orderIndex[key] = txn.TransactionID
	out := cp
	return &out, nil
}

func (m *MockDataSource) GetTransaction(_ context.Context, id string) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	txn, ok := m.transactions[id]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("transaction '%s' not found", id), nil)
	}
	cp := *txn
	return &cp, nil
}

func (m *MockDataSource) GetTransactionByOrder(_ context.Context, sellerID, orderID string) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.orderIndex[orderKey(sellerID, orderID)]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound,
			fmt.Sprintf("no transaction for seller '%s' order '%s'", sellerID, orderID), nil)
	}
	cp := *m.transactions[id]
	return &cp, nil
}

func (m *MockDataSource) MarkTransactionSettled(_ context.Context, id string, outcome model.TransactionStatus, settledAt time.Time) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	txn, ok := m.transactions[id]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("transaction '%s' not found", id), nil)
	}
	if txn.Status != model.TransactionStatusPending {
		return nil, apierror.NewAPIError(apierror.ErrAlreadySettled,
			fmt.Sprintf("transaction '%s' is already %s", id, txn.Status), nil)
	}
	txn.Status = outcome
	txn.SettledAt = &settledAt
	cp := *txn
	return &cp, nil
}

func (m *MockDataSource) ListTransactionsForSeller(_ context.Context, sellerID string, filter model.TransactionFilter) ([]*model.Transaction, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	filter.Normalize()
	var matched []*model.Transaction
	for _, txn := range m.transactions {
		if txn.SellerID != sellerID {
			continue
		}
		if filter.Status != "" && txn.Status != filter.Status {
			continue
		}
		if !filter.From.IsZero() && txn.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && txn.CreatedAt.After(filter.To) {
			continue
		}
		if filter.MinAmount > 0 && txn.GrossAmount < filter.MinAmount {
			continue
		}
		if filter.MaxAmount > 0 && txn.GrossAmount > filter.MaxAmount {
			continue
		}
		cp := *txn
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := filter.Offset()
	if start > total {
		start = total
	}
	end := start + int64(filter.Limit)
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (m *MockDataSource) GetEarningsSummary(_ context.Context, sellerID string) (*model.EarningsSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	summary := &model.EarningsSummary{}
	for _, txn := range m.transactions {
		if txn.SellerID != sellerID {
			continue
		}
		switch txn.Status {
		case model.TransactionStatusCompleted:
			summary.CompletedGross += txn.GrossAmount
			summary.CompletedFees += txn.PlatformFee
			summary.CompletedNet += txn.NetAmount
		case model.TransactionStatusPending:
			summary.PendingGross += txn.GrossAmount
		}
	}
	return summary, nil
}

func (m *MockDataSource) CreatePayout(_ context.Context, p *model.Payout) (*model.Payout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *p
	m.payouts[p.PayoutID] = &cp
	out := cp
	return &out, nil
}

func (m *MockDataSource) GetPayout(_ context.Context, id string) (*model.Payout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.payouts[id]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("payout '%s' not found", id), nil)
	}
	cp := *p
	return &cp, nil
}

func (m *MockDataSource) UpdatePayoutStatus(_ context.Context, p *model.Payout, expected model.PayoutStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.payouts[p.PayoutID]
	if !ok {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("payout '%s' not found", p.PayoutID), nil)
	}
	if stored.Status != expected {
		return apierror.NewAPIError(apierror.ErrInvalidTransition,
			fmt.Sprintf("payout '%s' is no longer %s", p.PayoutID, expected), nil)
	}
	cp := *p
	m.payouts[p.PayoutID] = &cp
	return nil
}

func (m *MockDataSource) ListPayoutsForSeller(_ context.Context, sellerID string, filter model.PayoutFilter) ([]*model.Payout, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	filter.Normalize()
	var matched []*model.Payout
	for _, p := range m.payouts {
		if p.SellerID != sellerID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		cp := *p
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].RequestedAt.After(matched[j].RequestedAt)
	})

	total := int64(len(matched))
	start := filter.Offset()
	if start > total {
		start = total
	}
	end := start + int64(filter.Limit)
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (m *MockDataSource) GetPayoutSummary(_ context.Context, sellerID string) (*model.PayoutSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	summary := &model.PayoutSummary{}
	for _, p := range m.payouts {
		if p.SellerID != sellerID {
			continue
		}
		switch {
		case p.Status.Reserving():
			summary.Reserved += p.Amount
		case p.Status == model.PayoutStatusPaid:
			summary.PaidOut += p.Amount
		}
	}
	return summary, nil
}
