package model

import (
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
)

func TestComputePlatformFee(t *testing.T) {
	tests := []struct {
		name    string
		gross   int64
		rate    float64
		wantFee int64
	}{
		{name: "10 percent of 10000", gross: 10000, rate: 10, wantFee: 1000},
		{name: "rounds half up", gross: 105, rate: 10, wantFee: 11},      // 10.5
		{name: "rounds down below half", gross: 104, rate: 10, wantFee: 10}, // 10.4
		{name: "zero rate", gross: 10000, rate: 0, wantFee: 0},
		{name: "fractional rate", gross: 9999, rate: 2.5, wantFee: 250}, // 249.975
		{name: "full rate", gross: 123, rate: 100, wantFee: 123},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantFee, ComputePlatformFee(tt.gross, tt.rate))
		})
	}
}

func TestNewTransactionSplitsGrossExactly(t *testing.T) {
	for i := 0; i < 500; i++ {
		gross := int64(gofakeit.Number(1, 10_000_000))
		rate := float64(gofakeit.Number(0, 30))
		txn := NewTransaction("sel_1", gofakeit.UUID(), "ORD-1", gross, rate)
		assert.Equal(t, gross, txn.PlatformFee+txn.NetAmount,
			"fee/net split must never lose or gain money against gross")
		assert.GreaterOrEqual(t, txn.NetAmount, int64(0))
	}
}

func TestNewTransactionDefaults(t *testing.T) {
	txn := NewTransaction("sel_1", "ord_1", "ORD-0001", 10000, 10)
	assert.Contains(t, txn.TransactionID, "txn_")
	assert.Equal(t, TransactionStatusPending, txn.Status)
	assert.Equal(t, int64(1000), txn.PlatformFee)
	assert.Equal(t, int64(9000), txn.NetAmount)
	assert.Nil(t, txn.SettledAt)
}

func TestTransactionFilterNormalize(t *testing.T) {
	f := TransactionFilter{}
	f.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 20, f.Limit)

	f = TransactionFilter{Page: 3, Limit: 500}
	f.Normalize()
	assert.Equal(t, 100, f.Limit)
	assert.Equal(t, int64(200), f.Offset())
}
