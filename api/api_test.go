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

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokomart/ledger"
	"github.com/sokomart/ledger/config"
	"github.com/sokomart/ledger/model"
)

type TestRequest struct {
	Payload  io.Reader
	Router   *gin.Engine
	Response interface{}
	Method   string
	Route    string
	Header   map[string]string
}

func SetUpTestRequest(s TestRequest) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(s.Method, s.Route, s.Payload)
	for key, value := range s.Header {
		req.Header.Set(key, value)
	}
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	s.Router.ServeHTTP(resp, req)

	if s.Response != nil {
		err := json.NewDecoder(resp.Body).Decode(&s.Response)
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func setupRouter(t *testing.T) (*gin.Engine, *ledger.Ledger) {
	t.Helper()
	mr := miniredis.RunT(t)
	config.MockConfig(&config.Configuration{
		Redis:  config.RedisConfig{Dns: mr.Addr()},
		Server: config.ServerConfig{SecretKey: "test_secret"},
	})

	l, err := ledger.NewLedger(ledger.NewMockDataSource())
	require.NoError(t, err)
	return NewAPI(l).Router(), l
}

func toJSON(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	payload, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(payload)
}

func recordEarning(t *testing.T, router *gin.Engine, sellerID, orderID string, gross int64, status string) model.Transaction {
	t.Helper()
	var txn model.Transaction
	body := map[string]interface{}{
		"seller_id":         sellerID,
		"order_id":          orderID,
		"order_number":      "SO-" + orderID,
		"gross_amount":      gross,
		"platform_fee_rate": 10,
		"status":            status,
	}
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  toJSON(t, body),
		Response: &txn,
		Method:   "POST",
		Route:    "/transactions",
		Router:   router,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.Code)
	return txn
}

func TestRecordEarningEndpoint(t *testing.T) {
	router, _ := setupRouter(t)

	txn := recordEarning(t, router, "seller_1", "order_1", 10000, "")
	assert.Equal(t, int64(1000), txn.PlatformFee)
	assert.Equal(t, int64(9000), txn.NetAmount)
	assert.Equal(t, model.TransactionStatusPending, txn.Status)
}

func TestRecordEarningEndpointRejectsBadBody(t *testing.T) {
	router, _ := setupRouter(t)

	resp, err := SetUpTestRequest(TestRequest{
		Payload: toJSON(t, map[string]interface{}{"seller_id": "seller_1"}),
		Method:  "POST",
		Route:   "/transactions",
		Router:  router,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSettleTransactionEndpoint(t *testing.T) {
	router, _ := setupRouter(t)
	txn := recordEarning(t, router, "seller_1", "order_1", 10000, "")

	var settled model.Transaction
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  toJSON(t, map[string]string{"status": "completed"}),
		Response: &settled,
		Method:   "PUT",
		Route:    fmt.Sprintf("/transactions/%s/settle", txn.TransactionID),
		Router:   router,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, model.TransactionStatusCompleted, settled.Status)

	// A second settle conflicts.
	resp, err = SetUpTestRequest(TestRequest{
		Payload: toJSON(t, map[string]string{"status": "failed"}),
		Method:  "PUT",
		Route:   fmt.Sprintf("/transactions/%s/settle", txn.TransactionID),
		Router:  router,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestGetBalanceEndpoint(t *testing.T) {
	router, _ := setupRouter(t)
	recordEarning(t, router, "seller_1", "order_1", 10000, "completed")

	var balance model.Balance
	resp, err := SetUpTestRequest(TestRequest{
		Response: &balance,
		Method:   "GET",
		Route:    "/sellers/seller_1/balance",
		Router:   router,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, int64(9000), balance.Available)
	assert.Equal(t, int64(1000), balance.PlatformFees)
}

func TestRequestPayoutEndpoint(t *testing.T) {
	router, _ := setupRouter(t)
	recordEarning(t, router, "seller_1", "order_1", 10000, "completed")

	var payout model.Payout
	resp, err := SetUpTestRequest(TestRequest{
		Payload: toJSON(t, map[string]interface{}{
			"seller_id":       "seller_1",
			"amount":          5000,
			"method":          "upi",
			"account_details": map[string]string{"upi_id": "seller@upi"},
		}),
		Response: &payout,
		Method:   "POST",
		Route:    "/payouts",
		Router:   router,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, model.PayoutStatusPending, payout.Status)

	// Over-withdrawing is unprocessable, not a validation error.
	resp, err = SetUpTestRequest(TestRequest{
		Payload: toJSON(t, map[string]interface{}{
			"seller_id":       "seller_1",
			"amount":          5000,
			"method":          "upi",
			"account_details": map[string]string{"upi_id": "seller@upi"},
		}),
		Method: "POST",
		Route:  "/payouts",
		Router: router,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestCancelPayoutEndpoint(t *testing.T) {
	router, _ := setupRouter(t)
	recordEarning(t, router, "seller_1", "order_1", 10000, "completed")

	var payout model.Payout
	_, err := SetUpTestRequest(TestRequest{
		Payload: toJSON(t, map[string]interface{}{
			"seller_id":       "seller_1",
			"amount":          5000,
			"method":          "wallet",
			"account_details": map[string]string{"wallet_id": "wal_1"},
		}),
		Response: &payout,
		Method:   "POST",
		Route:    "/payouts",
		Router:   router,
	})
	require.NoError(t, err)

	var cancelled model.Payout
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  toJSON(t, map[string]string{"seller_id": "seller_1"}),
		Response: &cancelled,
		Method:   "POST",
		Route:    fmt.Sprintf("/payouts/%s/cancel", payout.PayoutID),
		Router:   router,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, model.PayoutStatusCancelled, cancelled.Status)

	// Cancelling for another seller is forbidden.
	resp, err = SetUpTestRequest(TestRequest{
		Payload: toJSON(t, map[string]string{"seller_id": "seller_2"}),
		Method:  "POST",
		Route:   fmt.Sprintf("/payouts/%s/cancel", payout.PayoutID),
		Router:  router,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestAdvancePayoutEndpointRequiresSecretKey(t *testing.T) {
	router, _ := setupRouter(t)
	recordEarning(t, router, "seller_1", "order_1", 10000, "completed")

	var payout model.Payout
	_, err := SetUpTestRequest(TestRequest{
		Payload: toJSON(t, map[string]interface{}{
			"seller_id":       "seller_1",
			"amount":          5000,
			"method":          "wallet",
			"account_details": map[string]string{"wallet_id": "wal_1"},
		}),
		Response: &payout,
		Method:   "POST",
		Route:    "/payouts",
		Router:   router,
	})
	require.NoError(t, err)

	advanceBody := map[string]interface{}{"type": "begin_processing"}

	resp, err := SetUpTestRequest(TestRequest{
		Payload: toJSON(t, advanceBody),
		Method:  "POST",
		Route:   fmt.Sprintf("/payouts/%s/advance", payout.PayoutID),
		Router:  router,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	var processing model.Payout
	resp, err = SetUpTestRequest(TestRequest{
		Payload:  toJSON(t, advanceBody),
		Response: &processing,
		Method:   "POST",
		Route:    fmt.Sprintf("/payouts/%s/advance", payout.PayoutID),
		Router:   router,
		Header:   map[string]string{"X-Ledger-Key": "test_secret"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, model.PayoutStatusProcessing, processing.Status)
}

func TestListEndpoints(t *testing.T) {
	router, _ := setupRouter(t)
	recordEarning(t, router, "seller_1", "order_1", 10000, "completed")
	recordEarning(t, router, "seller_1", "order_2", 4000, "")

	var listResp struct {
		Transactions []model.Transaction `json:"transactions"`
		Total        int64               `json:"total"`
	}
	resp, err := SetUpTestRequest(TestRequest{
		Response: &listResp,
		Method:   "GET",
		Route:    "/sellers/seller_1/transactions?status=completed",
		Router:   router,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, int64(1), listResp.Total)

	var payoutResp struct {
		Payouts []model.Payout `json:"payouts"`
		Total   int64          `json:"total"`
	}
	resp, err = SetUpTestRequest(TestRequest{
		Response: &payoutResp,
		Method:   "GET",
		Route:    "/sellers/seller_1/payouts",
		Router:   router,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, int64(0), payoutResp.Total)
}
