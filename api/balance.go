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

	"github.com/sokomart/ledger/internal/apierror"
)

// GetBalance returns a seller's current balance snapshot, computed from the
// ledger on every call.
func (a Api) GetBalance(c *gin.Context) {
	sellerID, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "seller id is required. pass id in the route /sellers/:id/balance"})
		return
	}

	resp, err := a.ledger.ComputeBalance(c.Request.Context(), sellerID)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}
