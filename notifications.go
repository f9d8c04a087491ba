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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/smtp"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/davidenwere/kobo/config"
	redis_db "github.com/davidenwere/kobo/internal/redis-db"
	"github.com/davidenwere/kobo/model"
)

const NOTIFICATION_QUEUE = "new:notification"

// Queue wraps the asynq client used to hand transfer notifications off to
// the workers process.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

// NewQueue initializes a new Queue instance with the provided configuration.
func NewQueue(conf *config.Configuration) *Queue {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		log.Printf("Error parsing Redis URL for queue: %v", err)
		return nil
	}

	queueOptions := asynq.RedisClientOpt{Addr: redisOption.Addr, Password: redisOption.Password, DB: redisOption.DB, TLSConfig: redisOption.TLSConfig}
	client := asynq.NewClient(queueOptions)
	inspector := asynq.NewInspector(queueOptions)
	return &Queue{
		Client:    client,
		Inspector: inspector,
	}
}

// NotificationRecipient identifies one account owner to notify.
type NotificationRecipient struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"` // "sender" or "receiver"
}

// TransferNotification is the queue payload produced after a committed
// transfer. It carries everything the workers need so they never read the
// ledger.
type TransferNotification struct {
	Transaction model.Transaction       `json:"transaction"`
	Recipients  []NotificationRecipient `json:"recipients"`
}

// queueTransferNotification enqueues a post-commit transfer notification.
// Notifications are best effort: any failure here is logged and dropped, the
// committed movement stands.
func (k *Kobo) queueTransferNotification(notification TransferNotification) {
	if k.queue == nil || k.queue.Client == nil {
		return
	}

	payload, err := json.Marshal(notification)
	if err != nil {
		logrus.Errorf("failed to marshal transfer notification: %v", err)
		return
	}

	task := asynq.NewTask(NOTIFICATION_QUEUE, payload, asynq.Queue(NOTIFICATION_QUEUE), asynq.MaxRetry(5))
	info, err := k.queue.Client.Enqueue(task)
	if err != nil {
		logrus.Errorf("failed to enqueue transfer notification for %s: %v", notification.Transaction.Reference, err)
		return
	}
	logrus.Infof("queued transfer notification %s task %s", notification.Transaction.Reference, info.ID)
}

// ProcessTransferNotification handles a queued transfer notification: one
// email per recipient plus an optional webhook, each best effort.
func ProcessTransferNotification(_ context.Context, task *asynq.Task) error {
	var notification TransferNotification
	if err := json.Unmarshal(task.Payload(), &notification); err != nil {
		log.Printf("Error unmarshaling notification payload: %v", err)
		return err
	}

	conf, err := config.Fetch()
	if err != nil {
		return err
	}

	for _, recipient := range notification.Recipients {
		if err := sendTransferEmail(conf, recipient, notification.Transaction); err != nil {
			log.Printf("Error sending transfer email to %s: %v", recipient.Email, err)
		}
	}

	if conf.Notification.Webhook.Url != "" {
		if err := deliverWebhook(conf, notification); err != nil {
			log.Printf("Error delivering transfer webhook: %v", err)
		}
	}

	// Delivery problems were already logged per channel. Returning nil keeps
	// asynq from redelivering a notification some recipients already got.
	return nil
}

// sendTransferEmail sends a plain-text transfer notice over SMTP.
func sendTransferEmail(conf *config.Configuration, recipient NotificationRecipient, txn model.Transaction) error {
	email := conf.Notification.Email
	if email.Host == "" || email.Sender == "" {
		return nil
	}

	var subject, action string
	if recipient.Role == "receiver" {
		subject = "You received a transfer"
		action = fmt.Sprintf("received %s from account %s", txn.Amount.StringFixed(2), txn.SourceNumber)
	} else {
		subject = "Your transfer was sent"
		action = fmt.Sprintf("sent %s to account %s", txn.Amount.StringFixed(2), txn.DestinationNumber)
	}

	body := fmt.Sprintf("Hello %s,\r\n\r\nYou %s.\r\nReference: %s\r\nDate: %s\r\n",
		recipient.Name, action, txn.Reference, txn.CreatedAt.Format(time.RFC1123))

	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		email.Sender, recipient.Email, subject, body))

	addr := fmt.Sprintf("%s:%s", email.Host, email.Port)
	var auth smtp.Auth
	if email.Username != "" {
		auth = smtp.PlainAuth("", email.Username, email.Password, email.Host)
	}
	return smtp.SendMail(addr, auth, email.Sender, []string{recipient.Email}, msg)
}

// deliverWebhook POSTs the notification to the configured webhook URL,
// retrying transient failures with exponential backoff.
func deliverWebhook(conf *config.Configuration, notification TransferNotification) error {
	jsonData, err := json.Marshal(map[string]interface{}{
		"event": "transaction.transfer",
		"data":  notification.Transaction,
	})
	if err != nil {
		return err
	}

	operation := func() error {
		req, err := http.NewRequest("POST", conf.Notification.Webhook.Url, bytes.NewBuffer(jsonData))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		for key, value := range conf.Notification.Webhook.Headers {
			req.Header.Set(key, value)
		}

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return err
		}
		defer func(Body io.ReadCloser) {
			if err := Body.Close(); err != nil {
				logrus.Error(err)
			}
		}(resp.Body)

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	return backoff.Retry(operation, policy)
}
