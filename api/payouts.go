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

	"github.com/gin-gonic/gin"

	model2 "github.com/sokomart/ledger/api/model"
	"github.com/sokomart/ledger/internal/apierror"
	"github.com/sokomart/ledger/model"
)

// RequestPayout creates a withdrawal request against a seller's available
// balance. The amount is reserved until the payout reaches a terminal state.
func (a Api) RequestPayout(c *gin.Context) {
	var req model2.RequestPayout
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := req.ValidateRequestPayout(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.ledger.RequestPayout(c.Request.Context(), req.SellerID, req.Amount, model.PayoutMethod(req.Method), req.AccountDetails)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (a Api) GetPayout(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.ledger.GetPayout(c.Request.Context(), id)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CancelPayout cancels a pending or processing payout on behalf of its
// seller and releases the reserved amount.
func (a Api) CancelPayout(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id/cancel"})
		return
	}

	var req model2.CancelPayout
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := req.ValidateCancelPayout(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.ledger.CancelPayout(c.Request.Context(), id, req.SellerID)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// AdvancePayout applies a payment processor callback to the payout state
// machine. The route sits behind the secret key middleware.
func (a Api) AdvancePayout(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id/advance"})
		return
	}

	var req model2.AdvancePayout
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := req.ValidateAdvancePayout(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.ledger.AdvancePayout(c.Request.Context(), id, req.ToPayoutEvent())
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListPayouts returns one page of a seller's payout history.
func (a Api) ListPayouts(c *gin.Context) {
	sellerID, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "seller id is required. pass id in the route /sellers/:id/payouts"})
		return
	}

	filter := model.PayoutFilter{
		Status: model.PayoutStatus(c.Query("status")),
		Page:   int(queryInt64(c, "page")),
		Limit:  int(queryInt64(c, "limit")),
	}

	payouts, total, err := a.ledger.ListPayouts(c.Request.Context(), sellerID, filter)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"payouts": payouts, "total": total})
}
