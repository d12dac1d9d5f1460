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
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	model2 "github.com/sokomart/ledger/api/model"
	"github.com/sokomart/ledger/internal/apierror"
	"github.com/sokomart/ledger/model"
)

// RecordEarning records a settled order line on a seller's ledger. The
// operation is idempotent per (seller_id, order_id); a redelivered event
// gets the stored transaction back.
func (a Api) RecordEarning(c *gin.Context) {
	var req model2.RecordEarning
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := req.ValidateRecordEarning(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.ledger.RecordEarning(c.Request.Context(), req.SellerID, req.OrderID, req.OrderNumber, req.GrossAmount, req.PlatformFeeRate, req.Outcome())
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (a Api) GetTransaction(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.ledger.GetTransaction(c.Request.Context(), id)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SettleTransaction applies the completed or failed outcome to a pending
// transaction.
func (a Api) SettleTransaction(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id/settle"})
		return
	}

	var req model2.SettleTransaction
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := req.ValidateSettleTransaction(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.ledger.MarkTransactionSettled(c.Request.Context(), id, req.Outcome())
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListTransactions returns one page of a seller's transaction history.
func (a Api) ListTransactions(c *gin.Context) {
	sellerID, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "seller id is required. pass id in the route /sellers/:id/transactions"})
		return
	}

	filter := model.TransactionFilter{
		Status:    model.TransactionStatus(c.Query("status")),
		MinAmount: queryInt64(c, "min_amount"),
		MaxAmount: queryInt64(c, "max_amount"),
		Page:      int(queryInt64(c, "page")),
		Limit:     int(queryInt64(c, "limit")),
	}
	if from, err := time.Parse(time.RFC3339, c.Query("from")); err == nil {
		filter.From = from
	}
	if to, err := time.Parse(time.RFC3339, c.Query("to")); err == nil {
		filter.To = to
	}

	transactions, total, err := a.ledger.ListTransactions(c.Request.Context(), sellerID, filter)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions, "total": total})
}

func queryInt64(c *gin.Context, key string) int64 {
	v, err := strconv.ParseInt(c.Query(key), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
