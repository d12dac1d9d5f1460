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
	"embed"
	"fmt"

	"github.com/sokomart/ledger/config"
	"github.com/sokomart/ledger/database"
	redis_db "github.com/sokomart/ledger/internal/redis-db"
	"github.com/redis/go-redis/v9"
)

// Ledger is the seller earnings and payout service. It owns the transaction
// ledger, the balance calculator and the payout orchestrator; everything
// else (order settlement, notification channels, the console UI) talks to
// it through the API surface or the webhook port.
type Ledger struct {
	queue      *Queue
	redis      redis.UniversalClient
	datasource database.IDataSource
}

//go:embed sql/*.sql
var SQLFiles embed.FS

// NewLedger initializes the service with the provided datasource, wiring
// redis (payout locks) and the webhook queue from configuration.
func NewLedger(db database.IDataSource) (*Ledger, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	redisClient, err := redis_db.NewRedisClient([]string{fmt.Sprintf("redis://%s", configuration.Redis.Dns)})
	if err != nil {
		return nil, err
	}

	newQueue := NewQueue(configuration)

	return &Ledger{
		queue:      newQueue,
		redis:      redisClient.Client(),
		datasource: db,
	}, nil
}
