/*
Copyright 2024 Kobo Authors.

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

package kobo

import (
	"github.com/redis/go-redis/v9"

	"github.com/davidenwere/kobo/config"
	"github.com/davidenwere/kobo/database"
	redis_db "github.com/davidenwere/kobo/internal/redis-db"
)

// Kobo is the money-movement engine. All balance-changing operations go
// through it; the HTTP layer only translates requests and errors.
type Kobo struct {
	queue      *Queue
	redis      redis.UniversalClient
	datasource database.IDataSource
}

// NewKobo initializes the engine against the provided datasource. It fetches
// the configuration and wires the redis client and the notification queue.
func NewKobo(db database.IDataSource) (*Kobo, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient([]string{configuration.Redis.Dns})
	if err != nil {
		return nil, err
	}
	newQueue := NewQueue(configuration)
	return &Kobo{datasource: db, queue: newQueue, redis: redisClient.Client()}, nil
}
