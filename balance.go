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

	"github.com/sirupsen/logrus"

	"github.com/sokomart/ledger/config"
	"github.com/sokomart/ledger/internal/apierror"
	"github.com/sokomart/ledger/internal/notification"
	"github.com/sokomart/ledger/model"
)

// ComputeBalance derives a seller's balance snapshot from the ledger.
// Nothing is stored; the snapshot is recomputed from transaction and
// payout sums on every call, so a seller with no rows reads as zero
// everywhere rather than not found.
func (l *Ledger) ComputeBalance(ctx context.Context, sellerID string) (*model.Balance, error) {
	ctx, span := tracer.Start(ctx, "Computing seller balance")
	defer span.End()

	if sellerID == "" {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "seller id is required", nil)
	}

	earnings, err := l.datasource.GetEarningsSummary(ctx, sellerID)
	if err != nil {
		return nil, logAndRecordError(span, "error summarizing earnings: ", err)
	}

	payouts, err := l.datasource.GetPayoutSummary(ctx, sellerID)
	if err != nil {
		return nil, logAndRecordError(span, "error summarizing payouts: ", err)
	}

	balance := &model.Balance{
		SellerID:         sellerID,
		TotalRevenue:     earnings.CompletedGross + earnings.PendingGross,
		CompletedRevenue: earnings.CompletedGross,
		PendingRevenue:   earnings.PendingGross,
		PlatformFees:     earnings.CompletedFees,
		Reserved:         payouts.Reserved,
		PaidOut:          payouts.PaidOut,
		Available:        earnings.CompletedNet - payouts.Reserved - payouts.PaidOut,
		ComputedAt:       time.Now(),
	}

	if balance.Available < 0 {
		// A negative available balance means payouts were reserved against
		// money that is not there. Surface it loudly instead of clamping.
		err := apierror.NewAPIError(apierror.ErrInvariantViolation,
			fmt.Sprintf("seller %s has negative available balance %d", sellerID, balance.Available), balance)
		notification.NotifyError(err)
		return nil, logAndRecordError(span, "balance invariant violated: ", err)
	}

	l.checkLowBalance(ctx, balance)
	return balance, nil
}

// checkLowBalance emits an advisory event when available funds drop under
// the configured threshold. Delivery failures never affect the read path.
func (l *Ledger) checkLowBalance(ctx context.Context, balance *model.Balance) {
	conf, err := config.Fetch()
	if err != nil || conf.Payout.LowBalanceThreshold <= 0 {
		return
	}
	if balance.Available >= conf.Payout.LowBalanceThreshold {
		return
	}

	go func() {
		err := l.queue.EnqueueWebhook(context.WithoutCancel(ctx), NewWebhook{
			Event: "balance.low",
			Payload: model.LowBalanceEvent{
				SellerID:  balance.SellerID,
				Available: balance.Available,
				Threshold: conf.Payout.LowBalanceThreshold,
				Timestamp: time.Now(),
			},
		})
		if err != nil {
			logrus.Error("error enqueuing low balance event: ", err)
		}
	}()
}
