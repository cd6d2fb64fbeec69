package cli

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/grid/internal/paths"
	"github.com/mesh-intelligence/grid/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	// envPrefix maps config keys to environment variables: data_dir is
	// read from GRID_DATA_DIR.
	envPrefix = "GRID"

	cfgKeyBackend     = "backend"
	cfgKeyDataDir     = "data_dir"
	cfgKeyDatabaseURL = "database_url"
	cfgKeyServerAddr  = "server_addr"
	cfgKeyAuthSecret  = "auth_secret"
	cfgKeyPageSize    = "page_size"
	cfgKeyBatchSize   = "batch_size"
	cfgKeyLogLevel    = "log_level"
	cfgKeyLogFormat   = "log_format"
)

const configHeader = "# grid configuration\n" +
	"# Every key can be overridden by an environment variable such as\n" +
	"# GRID_SERVER_ADDR or GRID_AUTH_SECRET.\n\n"

// loadConfig reads config.yaml from configDir, then the GRID_* environment.
// It creates the directory and a default config.yaml on first run.
func loadConfig(configDir string) (types.Config, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return types.Config{}, fmt.Errorf("creating config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return types.Config{}, fmt.Errorf("writing default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyDataDir, "")
	v.SetDefault(cfgKeyDatabaseURL, "")
	v.SetDefault(cfgKeyServerAddr, types.DefaultServerAddr)
	v.SetDefault(cfgKeyAuthSecret, "")
	v.SetDefault(cfgKeyPageSize, types.DefaultPageSize)
	v.SetDefault(cfgKeyBatchSize, types.DefaultBatchSize)
	v.SetDefault(cfgKeyLogLevel, types.DefaultLogLevel)
	v.SetDefault(cfgKeyLogFormat, types.DefaultLogFormat)

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return types.Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// ensureDefaultConfigFile writes config.yaml with default values and a
// fresh signing secret if the file does not exist.
func ensureDefaultConfigFile(configDir string) error {
	path := paths.ConfigFile(configDir)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	secret, err := newSecret()
	if err != nil {
		return err
	}
	cfg := types.Config{
		Backend:    types.BackendSQLite,
		AuthSecret: secret,
	}.WithDefaults()

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, append([]byte(configHeader), data...), 0o600)
}

func newSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating auth secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
