package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/icellan/wallet-toolbox/pkg/defs"
)

// rootKeyEnv overrides config.RootKeyHex so the key can stay out of the
// config file.
const rootKeyEnv = "WALLETD_ROOT_KEY"

// Config is the walletd configuration file.
type Config struct {
	// Name identifies this storage instance in the settings row.
	Name string `yaml:"name"`

	// Network selects mainnet or testnet.
	Network string `yaml:"network"`

	// RootKeyHex is the wallet root private key. Prefer the WALLETD_ROOT_KEY
	// environment variable over putting it here.
	RootKeyHex string `yaml:"root_key_hex"`

	Logging struct {
		Level   string `yaml:"level"`
		Handler string `yaml:"handler"`
	} `yaml:"logging"`

	// RPCPort is where the storage JSON-RPC endpoint listens.
	RPCPort int `yaml:"rpc_port"`

	TLS struct {
		// Enabled serves the RPC endpoint over HTTPS with a self-signed
		// localhost certificate generated under CertDir.
		Enabled bool   `yaml:"enabled"`
		CertDir string `yaml:"cert_dir"`
	} `yaml:"tls"`

	Database   defs.Database   `yaml:"database"`
	FeeModel   defs.FeeModel   `yaml:"fee_model"`
	Commission defs.Commission `yaml:"commission"`
	Services   defs.Services   `yaml:"services"`

	Monitor struct {
		Enabled bool                                 `yaml:"enabled"`
		Tasks   map[defs.MonitorTask]defs.TaskConfig `yaml:"tasks"`
		Purge   defs.PurgeParams                     `yaml:"purge"`
	} `yaml:"monitor"`
}

// DefaultConfig returns a runnable mainnet configuration with an in-memory
// database, suitable as a starting point for a config file.
func DefaultConfig() Config {
	var cfg Config
	cfg.Name = "walletd"
	cfg.Network = string(defs.NetworkMainnet)
	cfg.Logging.Level = string(defs.LogLevelInfo)
	cfg.Logging.Handler = string(defs.JSONHandler)
	cfg.RPCPort = 8100
	cfg.Database = defs.DefaultDBConfig()
	cfg.FeeModel = defs.DefaultFeeModel()
	cfg.Services = defs.DefaultServicesConfig(defs.NetworkMainnet)
	cfg.Monitor.Enabled = true
	cfg.Monitor.Tasks = defs.DefaultMonitorTasks()
	cfg.Monitor.Purge = defs.DefaultPurgeParams()
	return cfg
}

// LoadConfig reads the YAML file at path over the defaults. An empty path
// returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
		if err != nil {
			return cfg, fmt.Errorf("cannot read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("cannot parse config file: %w", err)
		}
	}

	if key := os.Getenv(rootKeyEnv); key != "" {
		cfg.RootKeyHex = key
	}
	return cfg, nil
}

// Validate checks the configuration before anything is wired.
func (c *Config) Validate() (defs.BSVNetwork, error) {
	network, err := defs.ParseBSVNetworkStr(c.Network)
	if err != nil {
		return "", fmt.Errorf("invalid network: %w", err)
	}
	if c.RootKeyHex == "" {
		return "", fmt.Errorf("root key is required (set %s or root_key_hex)", rootKeyEnv)
	}
	if _, err := defs.ParseLogLevelStr(c.Logging.Level); err != nil {
		return "", fmt.Errorf("invalid log level: %w", err)
	}
	if _, err := defs.ParseLogHandlerStr(c.Logging.Handler); err != nil {
		return "", fmt.Errorf("invalid log handler: %w", err)
	}
	if c.RPCPort <= 0 || c.RPCPort > 65535 {
		return "", fmt.Errorf("invalid rpc port: %d", c.RPCPort)
	}
	if c.TLS.Enabled && c.TLS.CertDir == "" {
		return "", fmt.Errorf("tls cert_dir is required when tls is enabled")
	}
	if err := c.Database.Validate(); err != nil {
		return "", fmt.Errorf("invalid database config: %w", err)
	}
	if err := c.FeeModel.Validate(); err != nil {
		return "", fmt.Errorf("invalid fee model: %w", err)
	}
	if err := c.Commission.Validate(); err != nil {
		return "", fmt.Errorf("invalid commission config: %w", err)
	}
	return network, nil
}
