package config

import (
	"encoding/json"
	"os"
	"testing"
)

func TestValidateAndAddDefaults(t *testing.T) {
	// Test case with empty DataSource DNS
	cnf := Configuration{
		ProjectName: "",
		DataSource: DataSourceConfig{
			Dns: "",
		},
		Redis: RedisConfig{
			Dns: "localhost:6379",
		},
	}

	err := cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "data source DNS is required" {
		t.Errorf("Expected data source DNS required error, got %v", err)
	}
	cnf = Configuration{
		ProjectName: "",
		DataSource: DataSourceConfig{
			Dns: "postgres://localhost:5432",
		},
		Redis: RedisConfig{
			Dns: "",
		},
	}

	err = cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "redis DNS is required" {
		t.Errorf("Expected redis DNS required error, got %v", err)
	}

	cnf = Configuration{
		ProjectName: "",
		DataSource: DataSourceConfig{
			Dns: "postgres://localhost:5432",
		},
		Redis: RedisConfig{
			Dns: "localhost:6379",
		},
	}

	err = cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "server secret key is required" {
		t.Errorf("Expected secret key required error, got %v", err)
	}

	// Test case with all required fields filled, expect no error
	cnf = Configuration{
		ProjectName: "Test Project",
		Server: ServerConfig{
			SecretKey: "test-secret",
		},
		DataSource: DataSourceConfig{
			Dns: "some-dns",
		},
		Redis: RedisConfig{
			Dns: "localhost:6379",
		},
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	// Test default port and token expiry settings
	cnf.Server.Port = ""
	cnf.Server.TokenExpiryMinutes = 0
	err = cnf.validateAndAddDefaults()
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if cnf.Server.Port != DEFAULT_PORT {
		t.Errorf("Expected default port %s, got %s", DEFAULT_PORT, cnf.Server.Port)
	}
	if cnf.Server.TokenExpiryMinutes != DEFAULT_TOKEN_EXPIRY_MINUTES {
		t.Errorf("Expected default token expiry %d, got %d", DEFAULT_TOKEN_EXPIRY_MINUTES, cnf.Server.TokenExpiryMinutes)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	// Create a temporary file
	tmpFile, err := os.CreateTemp("", "kobo.json")
	if err != nil {
		t.Fatalf("Unable to create temporary file: %v", err)
	}
	defer os.Remove(tmpFile.Name()) // Clean up after the test

	// Sample configuration to write to the temp file
	sampleConfig := Configuration{
		ProjectName: "Temp Project",
		Server: ServerConfig{
			SecretKey: "temp-secret",
		},
		DataSource: DataSourceConfig{
			Dns: "temp-dns",
		},
		Redis: RedisConfig{
			Dns: "localhost:6379",
		},
	}
	if err := json.NewEncoder(tmpFile).Encode(&sampleConfig); err != nil {
		t.Fatalf("Unable to write to temporary file: %v", err)
	}
	if err := tmpFile.Close(); err != nil {
		t.Fatalf("Unable to close temporary file: %v", err)
	}

	if err := loadConfigFromFile(tmpFile.Name()); err != nil {
		t.Fatalf("loadConfigFromFile returned error: %v", err)
	}

	loaded, err := Fetch()
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if loaded.ProjectName != "Temp Project" {
		t.Errorf("Expected project name %q, got %q", "Temp Project", loaded.ProjectName)
	}
	if loaded.DataSource.Dns != "temp-dns" {
		t.Errorf("Expected data source dns %q, got %q", "temp-dns", loaded.DataSource.Dns)
	}
	if loaded.Server.Port != DEFAULT_PORT {
		t.Errorf("Expected default port %s, got %s", DEFAULT_PORT, loaded.Server.Port)
	}
}

func TestMockConfig(t *testing.T) {
	MockConfig(&Configuration{ProjectName: "Mocked"})
	conf, err := Fetch()
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if conf.ProjectName != "Mocked" {
		t.Errorf("Expected mocked project name, got %q", conf.ProjectName)
	}
}
