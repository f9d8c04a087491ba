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

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
	"github.com/spf13/cobra"

	"github.com/davidenwere/kobo"
	"github.com/davidenwere/kobo/config"
	redis_db "github.com/davidenwere/kobo/internal/redis-db"
)

func initializeWorkerServer(conf *config.Configuration) (*asynq.Server, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %v", err)
	}

	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:      redisOption.Addr,
			Password:  redisOption.Password,
			DB:        redisOption.DB,
			TLSConfig: redisOption.TLSConfig,
		},
		asynq.Config{
			Concurrency: 1,
			Queues: map[string]int{
				kobo.NOTIFICATION_QUEUE: 3,
			},
		},
	), nil
}

// workerCommands defines the "workers" command. The workers drain the
// notification queue and deliver transfer emails and webhooks.
func workerCommands(k *koboInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start kobo workers",
		Run: func(cmd *cobra.Command, args []string) {
			conf, err := config.Fetch()
			if err != nil {
				log.Fatal("Error fetching config:", err)
			}

			shutdown, err := initializeTracing(context.Background())
			if err != nil {
				log.Printf("Tracing initialization error: %v", err)
			}
			if shutdown != nil {
				defer func() {
					if err := shutdown(context.Background()); err != nil {
						log.Printf("Error during shutdown: %v", err)
					}
				}()
			}

			srv, err := initializeWorkerServer(conf)
			if err != nil {
				log.Fatal(err)
			}

			mux := asynq.NewServeMux()
			mux.HandleFunc(kobo.NOTIFICATION_QUEUE, kobo.ProcessTransferNotification)

			// Asynqmon serves queue health and monitoring on its own port.
			redisOption, _ := redis_db.ParseRedisURL(conf.Redis.Dns)
			h := asynqmon.New(asynqmon.Options{
				RootPath: "/monitoring",
				RedisConnOpt: asynq.RedisClientOpt{
					Addr:      redisOption.Addr,
					Password:  redisOption.Password,
					DB:        redisOption.DB,
					TLSConfig: redisOption.TLSConfig,
				},
			})

			go func() {
				monitoringAddr := fmt.Sprintf(":%s", conf.Server.MonitoringPort)
				log.Printf("Asynqmon server listening on %s/monitoring", monitoringAddr)
				if err := http.ListenAndServe(monitoringAddr, h); err != nil {
					log.Fatalf("could not start asynqmon server: %v", err)
				}
			}()

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}
