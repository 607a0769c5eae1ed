package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
service:
  id: "test-owsync"
store:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
  prefix: "owfs"
owfs:
  servers:
    - name: "prime"
      host: "localhost"
      port: 4304
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "0.0.0.0"
  port: 8086
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Service.ID != "test-owsync" {
		t.Errorf("Service.ID = %q, want %q", cfg.Service.ID, "test-owsync")
	}
	if cfg.Store.Path != "/tmp/test.db" {
		t.Errorf("Store.Path = %q, want %q", cfg.Store.Path, "/tmp/test.db")
	}
	if len(cfg.OWFS.Servers) != 1 || cfg.OWFS.Servers[0].Host != "localhost" {
		t.Errorf("OWFS.Servers = %+v", cfg.OWFS.Servers)
	}
	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}
	// Values absent from the file keep their defaults.
	if cfg.Store.ErrorPrefix != "errors" {
		t.Errorf("Store.ErrorPrefix = %q, want default", cfg.Store.ErrorPrefix)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
store:
  path: ""
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty store.path, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Store: StoreConfig{Path: "/data/owsync.db", Prefix: "owfs", ErrorPrefix: "errors"},
			MQTT:  MQTTConfig{QoS: 1},
			API:   APIConfig{Port: 8086},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid config", func(*Config) {}, false},
		{"missing store path", func(c *Config) { c.Store.Path = "" }, true},
		{"missing tree prefix", func(c *Config) { c.Store.Prefix = "" }, true},
		{"missing error prefix", func(c *Config) { c.Store.ErrorPrefix = "" }, true},
		{"gateway without host", func(c *Config) {
			c.OWFS.Servers = []OWFSServerConfig{{Name: "prime"}}
		}, true},
		{"invalid QoS", func(c *Config) { c.MQTT.QoS = 3 }, true},
		{"mqtt enabled without host", func(c *Config) { c.MQTT.Enabled = true }, true},
		{"api disabled ignores port", func(c *Config) { c.API.Port = 0 }, false},
		{"api enabled invalid port", func(c *Config) {
			c.API.Enabled = true
			c.API.Port = 70000
		}, true},
		{"influx enabled without token", func(c *Config) {
			c.InfluxDB.Enabled = true
			c.InfluxDB.URL = "http://localhost:8087"
			c.InfluxDB.Org = "home"
			c.InfluxDB.Bucket = "owsync"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
		MQTT: MQTTConfig{HealthInterval: 15},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
	if got := cfg.GetHealthInterval().Seconds(); got != 15 {
		t.Errorf("GetHealthInterval() = %v, want 15", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("OWSYNC_STORE_PATH", "/custom/path.db")
	t.Setenv("OWSYNC_STORE_PREFIX", "onewire")
	t.Setenv("OWSYNC_MQTT_HOST", "mqtt.example.com")
	t.Setenv("OWSYNC_MQTT_USERNAME", "testuser")
	t.Setenv("OWSYNC_MQTT_PASSWORD", "testpass")
	t.Setenv("OWSYNC_API_HOST", "192.168.1.1")
	t.Setenv("OWSYNC_INFLUXDB_TOKEN", "secret-token")

	applyEnvOverrides(cfg)

	if cfg.Store.Path != "/custom/path.db" {
		t.Errorf("Store.Path = %q, want %q", cfg.Store.Path, "/custom/path.db")
	}
	if cfg.Store.Prefix != "onewire" {
		t.Errorf("Store.Prefix = %q, want %q", cfg.Store.Prefix, "onewire")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}
	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}
	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Service.ID == "" {
		t.Error("defaultConfig should have non-empty Service.ID")
	}
	if cfg.Store.Path == "" {
		t.Error("defaultConfig should have non-empty Store.Path")
	}
	if cfg.Store.Prefix != "owfs" {
		t.Errorf("defaultConfig Store.Prefix = %q, want owfs", cfg.Store.Prefix)
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.API.Port != 8086 {
		t.Errorf("defaultConfig API.Port = %d, want 8086", cfg.API.Port)
	}
}
