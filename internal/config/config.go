// Package config loads the router configuration from an optional YAML file
// with environment-variable overrides on top of defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Lllllllleong/documentrouter/internal/gcp"
)

// ConfigPathEnv names the variable holding the YAML config path.
const ConfigPathEnv = "DOCROUTER_CONFIG"

// Config is the top-level configuration.
type Config struct {
	ProjectID  string           `yaml:"projectId"`
	Audit      AuditConfig      `yaml:"audit"`
	Oracle     OracleConfig     `yaml:"oracle"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Firestore  FirestoreConfig  `yaml:"firestore"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Storage    StorageConfig    `yaml:"storage"`
	Workflow   WorkflowConfig   `yaml:"workflow"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Process    ProcessConfig    `yaml:"process"`
}

// AuditConfig locates the persisted audit log.
type AuditConfig struct {
	Path string `yaml:"path"`
}

// OracleConfig selects and tunes the classification model.
type OracleConfig struct {
	Enabled bool          `yaml:"enabled"`
	Region  string        `yaml:"region"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// ExtractionConfig toggles page-document text extraction.
type ExtractionConfig struct {
	Enabled bool `yaml:"enabled"`
}

// FirestoreConfig controls the audit mirror in Firestore.
type FirestoreConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Collection string `yaml:"collection"`
}

// KafkaConfig controls the audit fan-out topic. No brokers disables it.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// StorageConfig names where intake results are archived.
type StorageConfig struct {
	ResultsBucket string `yaml:"resultsBucket"`
	ResultsPrefix string `yaml:"resultsPrefix"`
}

// WorkflowConfig names the downstream workflow. An empty ID disables hand-off.
type WorkflowConfig struct {
	ID       string `yaml:"id"`
	Location string `yaml:"location"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus endpoint of the serve command.
type MetricsConfig struct {
	Port int `yaml:"port"`
}

// ProcessConfig bounds batch processing.
type ProcessConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// Load reads the YAML file at path, if any, and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads the file named by DOCROUTER_CONFIG, or defaults when unset.
func LoadFromEnv() (*Config, error) {
	return Load(gcp.GetEnv(ConfigPathEnv, ""))
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	if c.Audit.Path == "" {
		return fmt.Errorf("audit.path must be set")
	}
	if c.Oracle.Enabled && c.ProjectID == "" {
		return fmt.Errorf("PROJECT_ID must be set when the oracle is enabled")
	}
	if c.Firestore.Enabled && c.ProjectID == "" {
		return fmt.Errorf("PROJECT_ID must be set when the firestore mirror is enabled")
	}
	if c.Workflow.ID != "" && c.ProjectID == "" {
		return fmt.Errorf("PROJECT_ID must be set when a workflow is configured")
	}
	if c.Process.Concurrency < 1 {
		return fmt.Errorf("process.concurrency must be at least 1, got %d", c.Process.Concurrency)
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Audit: AuditConfig{Path: "audit_log.json"},
		Oracle: OracleConfig{
			Region:  "us-central1",
			Model:   gcp.DefaultModel,
			Timeout: 30 * time.Second,
		},
		Extraction: ExtractionConfig{Enabled: true},
		Firestore:  FirestoreConfig{Collection: "threads"},
		Kafka:      KafkaConfig{Topic: "document-audit"},
		Storage:    StorageConfig{ResultsPrefix: "results"},
		Workflow:   WorkflowConfig{Location: "us-central1"},
		Logging:    LoggingConfig{Level: "info", Format: "text"},
		Metrics:    MetricsConfig{Port: 9090},
		Process:    ProcessConfig{Concurrency: 4},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PROJECT_ID"); v != "" {
		cfg.ProjectID = v
	}
	if v := os.Getenv("VERTEX_AI_REGION"); v != "" {
		cfg.Oracle.Region = v
	}
	if v := os.Getenv("FIRESTORE_COLLECTION"); v != "" {
		cfg.Firestore.Collection = v
	}
	if v := os.Getenv("WORKFLOW_ID"); v != "" {
		cfg.Workflow.ID = v
	}
	if v := os.Getenv("WORKFLOW_LOCATION"); v != "" {
		cfg.Workflow.Location = v
	}
	if v := os.Getenv("RESULTS_BUCKET"); v != "" {
		cfg.Storage.ResultsBucket = v
	}
	if v := os.Getenv("DOCROUTER_AUDIT_PATH"); v != "" {
		cfg.Audit.Path = v
	}
	if v := os.Getenv("DOCROUTER_ORACLE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Oracle.Enabled = b
		}
	}
	if v := os.Getenv("DOCROUTER_ORACLE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Oracle.Timeout = d
		}
	}
	if v := os.Getenv("DOCROUTER_FIRESTORE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Firestore.Enabled = b
		}
	}
	if v := os.Getenv("DOCROUTER_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("DOCROUTER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DOCROUTER_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("DOCROUTER_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}
