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
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jarcoal/httpmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidenwere/kobo/config"
	"github.com/davidenwere/kobo/model"
)

func sampleNotification() TransferNotification {
	return TransferNotification{
		Transaction: model.Transaction{
			TransactionID:     "txn_1",
			Reference:         "TXN0A1B2C3D",
			SourceNumber:      "1111111111",
			DestinationNumber: "2222222222",
			Amount:            decimal.NewFromInt(250),
			Type:              model.TypeTransfer,
			CreatedAt:         time.Now(),
		},
		Recipients: []NotificationRecipient{
			{Email: "sender@example.com", Name: "Ada Obi", Role: "sender"},
			{Email: "receiver@example.com", Name: "Bola Ade", Role: "receiver"},
		},
	}
}

func TestDeliverWebhook(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	conf := &config.Configuration{
		Notification: config.Notification{
			Webhook: config.WebhookConfig{
				Url:     "http://hooks.example.com/transfers",
				Headers: map[string]string{"X-Api-Key": "hook-key"},
			},
		},
	}

	var received map[string]interface{}
	httpmock.RegisterResponder("POST", "http://hooks.example.com/transfers",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "hook-key", req.Header.Get("X-Api-Key"))
			if err := json.NewDecoder(req.Body).Decode(&received); err != nil {
				return httpmock.NewStringResponse(http.StatusBadRequest, ""), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, `{"ok":true}`), nil
		})

	err := deliverWebhook(conf, sampleNotification())
	require.NoError(t, err)
	assert.Equal(t, "transaction.transfer", received["event"])
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestDeliverWebhookRetriesServerErrors(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	conf := &config.Configuration{
		Notification: config.Notification{
			Webhook: config.WebhookConfig{Url: "http://hooks.example.com/transfers"},
		},
	}

	calls := 0
	httpmock.RegisterResponder("POST", "http://hooks.example.com/transfers",
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls < 3 {
				return httpmock.NewStringResponse(http.StatusBadGateway, ""), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, ""), nil
		})

	err := deliverWebhook(conf, sampleNotification())
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestProcessTransferNotification(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	config.MockConfig(&config.Configuration{
		Notification: config.Notification{
			Webhook: config.WebhookConfig{Url: "http://hooks.example.com/transfers"},
		},
	})

	httpmock.RegisterResponder("POST", "http://hooks.example.com/transfers",
		httpmock.NewStringResponder(http.StatusOK, ""))

	payload, err := json.Marshal(sampleNotification())
	require.NoError(t, err)

	task := asynq.NewTask(NOTIFICATION_QUEUE, payload)
	require.NoError(t, ProcessTransferNotification(context.Background(), task))
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestProcessTransferNotificationBadPayload(t *testing.T) {
	task := asynq.NewTask(NOTIFICATION_QUEUE, []byte("{not json"))
	assert.Error(t, ProcessTransferNotification(context.Background(), task))
}
