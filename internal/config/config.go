package config

import (
	"os"
	"strconv"

	"gohar/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Data   DataConfig
	Model  ModelConfig
	Ledger LedgerConfig
	Report ReportConfig
}

// DataConfig holds ingest settings
type DataConfig struct {
	ReferenceFile string
	QueryFile     string
	Delimiter     string
	Sheet         string
	MissingTokens []string
}

// ModelConfig holds training settings
type ModelConfig struct {
	Seed            int64
	Folds           int
	Trees           int
	MaxDepth        int
	MinSamplesLeaf  int
	MinSamplesSplit int
	Complexity      float64
	MaxWorkers      int
}

// LedgerConfig holds run ledger settings
type LedgerConfig struct {
	Path    string
	Enabled bool
}

// ReportConfig holds report rendering settings
type ReportConfig struct {
	Dir        string
	RenderHTML bool
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Data:   loadDataConfig(),
		Model:  loadModelConfig(),
		Ledger: loadLedgerConfig(),
		Report: loadReportConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadDataConfig() DataConfig {
	return DataConfig{
		ReferenceFile: getEnvOrDefault("REFERENCE_FILE", ""),
		QueryFile:     getEnvOrDefault("QUERY_FILE", ""),
		Delimiter:     getEnvOrDefault("CSV_DELIMITER", ","),
		Sheet:         getEnvOrDefault("XLSX_SHEET", "Sheet1"),
		// The course export uses empty cells, NA, and spreadsheet
		// division errors interchangeably for missing values.
		MissingTokens: []string{"", "NA", "#DIV/0!"},
	}
}

func loadModelConfig() ModelConfig {
	return ModelConfig{
		Seed:            getEnvInt64OrDefault("SEED", 42),
		Folds:           getEnvIntOrDefault("CV_FOLDS", 5),
		Trees:           getEnvIntOrDefault("ENSEMBLE_TREES", 64),
		MaxDepth:        getEnvIntOrDefault("TREE_MAX_DEPTH", 0),
		MinSamplesLeaf:  getEnvIntOrDefault("TREE_MIN_LEAF", 1),
		MinSamplesSplit: getEnvIntOrDefault("TREE_MIN_SPLIT", 2),
		// Baseline tree pruning only; ensemble members always grow unpruned.
		Complexity: getEnvFloatOrDefault("TREE_COMPLEXITY", 0.01),
		MaxWorkers: getEnvIntOrDefault("MAX_WORKERS", 4),
	}
}

func loadLedgerConfig() LedgerConfig {
	return LedgerConfig{
		Path:    getEnvOrDefault("LEDGER_PATH", "gohar.db"),
		Enabled: getEnvBoolOrDefault("LEDGER_ENABLED", true),
	}
}

func loadReportConfig() ReportConfig {
	return ReportConfig{
		Dir:        getEnvOrDefault("REPORT_DIR", "reports"),
		RenderHTML: getEnvBoolOrDefault("REPORT_HTML", false),
	}
}

func validateConfig(config *Config) error {
	if config.Model.Folds < 2 {
		return errors.ConfigInvalid("CV_FOLDS must be at least 2")
	}
	if config.Model.Trees < 1 {
		return errors.ConfigInvalid("ENSEMBLE_TREES must be at least 1")
	}
	if config.Model.MinSamplesLeaf < 1 {
		return errors.ConfigInvalid("TREE_MIN_LEAF must be at least 1")
	}
	if config.Model.MinSamplesSplit < 2 {
		return errors.ConfigInvalid("TREE_MIN_SPLIT must be at least 2")
	}
	if config.Model.Complexity < 0 || config.Model.Complexity >= 1 {
		return errors.ConfigInvalid("TREE_COMPLEXITY must be in [0, 1)")
	}
	if config.Model.MaxWorkers < 1 {
		return errors.ConfigInvalid("MAX_WORKERS must be at least 1")
	}
	if config.Ledger.Enabled && config.Ledger.Path == "" {
		return errors.ConfigInvalid("LEDGER_PATH is required when the ledger is enabled")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
