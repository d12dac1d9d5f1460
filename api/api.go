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
	"github.com/gin-gonic/gin"

	"github.com/sokomart/ledger"
	"github.com/sokomart/ledger/api/middleware"
	"github.com/sokomart/ledger/config"
)

type Api struct {
	ledger *ledger.Ledger
	router *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/transactions", a.RecordEarning)
	router.GET("/transactions/:id", a.GetTransaction)
	router.PUT("/transactions/:id/settle", a.SettleTransaction)

	router.GET("/sellers/:id/balance", a.GetBalance)
	router.GET("/sellers/:id/transactions", a.ListTransactions)
	router.GET("/sellers/:id/payouts", a.ListPayouts)

	router.POST("/payouts", a.RequestPayout)
	router.GET("/payouts/:id", a.GetPayout)
	router.POST("/payouts/:id/cancel", a.CancelPayout)

	// Processor callbacks are internal only.
	router.POST("/payouts/:id/advance", middleware.SecretKeyAuthMiddleware(), a.AdvancePayout)

	return a.router
}

func NewAPI(l *ledger.Ledger) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(middleware.RateLimitMiddleware(conf))
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{ledger: l, router: r}
}
