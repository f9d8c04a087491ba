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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT                 = "5001"
	DEFAULT_MONITORING_PORT      = "5002"
	DEFAULT_TOKEN_EXPIRY_MINUTES = 60
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL                bool   `json:"ssl" envconfig:"KOBO_SERVER_SSL"`
	Secure             bool   `json:"secure" envconfig:"KOBO_SERVER_SECURE"`
	SecretKey          string `json:"secret_key" envconfig:"KOBO_SERVER_SECRET_KEY"`
	Domain             string `json:"domain" envconfig:"KOBO_SERVER_SSL_DOMAIN"`
	Email              string `json:"ssl_email" envconfig:"KOBO_SERVER_SSL_EMAIL"`
	Port               string `json:"port" envconfig:"KOBO_SERVER_PORT"`
	MonitoringPort     string `json:"monitoring_port" envconfig:"KOBO_SERVER_MONITORING_PORT"`
	TokenExpiryMinutes int    `json:"token_expiry_minutes" envconfig:"KOBO_SERVER_TOKEN_EXPIRY_MINUTES"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"KOBO_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"KOBO_REDIS_DNS"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"KOBO_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"KOBO_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"KOBO_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type EmailConfig struct {
	Host     string `json:"host" envconfig:"KOBO_EMAIL_HOST"`
	Port     string `json:"port" envconfig:"KOBO_EMAIL_PORT"`
	Username string `json:"username" envconfig:"KOBO_EMAIL_USERNAME"`
	Password string `json:"password" envconfig:"KOBO_EMAIL_PASSWORD"`
	Sender   string `json:"sender" envconfig:"KOBO_EMAIL_SENDER"`
}

type WebhookConfig struct {
	Url     string            `json:"url" envconfig:"KOBO_WEBHOOK_URL"`
	Headers map[string]string `json:"headers"`
}

type Notification struct {
	Slack   SlackWebhook  `json:"slack"`
	Email   EmailConfig   `json:"email"`
	Webhook WebhookConfig `json:"webhook"`
}

type Configuration struct {
	ProjectName  string           `json:"project_name" envconfig:"KOBO_PROJECT_NAME"`
	Server       ServerConfig     `json:"server"`
	DataSource   DataSourceConfig `json:"data_source"`
	Redis        RedisConfig      `json:"redis"`
	Notification Notification     `json:"notification"`
	RateLimit    RateLimitConfig  `json:"rate_limit"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("kobo", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called kobo.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Kobo Server"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	if cnf.Server.SecretKey == "" {
		log.Println("Error: Server secret key is empty. It's a required field.")
		return errors.New("server secret key is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	// Set default value for Port if it's empty
	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Server.MonitoringPort == "" {
		cnf.Server.MonitoringPort = DEFAULT_MONITORING_PORT
	}

	if cnf.Server.TokenExpiryMinutes <= 0 {
		cnf.Server.TokenExpiryMinutes = DEFAULT_TOKEN_EXPIRY_MINUTES
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}

	// Set default cleanup interval if not specified
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
		log.Printf("Warning: Rate limit cleanup interval not specified. Setting default value: %d seconds", defaultCleanup)
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
