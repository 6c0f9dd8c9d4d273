// Package config provides functionality for managing configuration options
// for the server using command-line flags, environment variables and an
// optional JSON or YAML config file.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/priyanshu-verma600/notekeeper/internal/address"
	"github.com/priyanshu-verma600/notekeeper/internal/ledger"
)

// Supported ledger backends.
const (
	DriverMemory   = "memory"
	DriverLevelDB  = "leveldb"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Duration is a time.Duration read from config files as text ("5m").
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration as a string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Options holds the configuration values for the server.
type Options struct {
	// Address is the server's listening address (ip:port).
	Address string `json:"address" yaml:"address"`

	// StoreDriver selects the ledger backend: memory, leveldb, postgres or sqlite.
	StoreDriver string `json:"store_driver" yaml:"store_driver"`

	// DatabaseDSN is the PostgreSQL connection string.
	DatabaseDSN string `json:"database_dsn" yaml:"database_dsn"`

	// StorePath is the LevelDB directory or SQLite file.
	StorePath string `json:"store_path" yaml:"store_path"`

	// Namespace separates the addresses of different deployments.
	Namespace string `json:"namespace" yaml:"namespace"`

	LogLevel string `json:"log_level" yaml:"log_level"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert" yaml:"tls_cert"`
	TLSKey  string `json:"tls_key" yaml:"tls_key"`

	// AuthMaxSkew bounds the age of request signatures.
	AuthMaxSkew Duration `json:"auth_max_skew" yaml:"auth_max_skew"`

	// PruneInterval is how often zero balances are pruned from SQL stores.
	PruneInterval Duration `json:"prune_interval" yaml:"prune_interval"`

	Rent ledger.Rent `json:"rent" yaml:"rent"`

	// Config is the path to the config file.
	Config string `json:"-" yaml:"-"`
}

// Parse reads the process flags, environment and config file. It exits
// the process on invalid configuration.
func Parse() *Options {
	opts, err := Load(os.Args[1:], os.Getenv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return opts
}

// Load builds Options from args and the environment looked up via getenv.
// Values from the config file override flags; environment variables
// override both.
func Load(args []string, getenv func(string) string) (*Options, error) {
	opts := &Options{
		AuthMaxSkew:   Duration{5 * time.Minute},
		PruneInterval: Duration{time.Hour},
		Rent:          ledger.DefaultRent(),
	}

	fs := flag.NewFlagSet("notekeeper-server", flag.ContinueOnError)
	fs.StringVar(&opts.Address, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&opts.StoreDriver, "s", DriverMemory, "ledger backend: memory, leveldb, postgres or sqlite")
	fs.StringVar(&opts.DatabaseDSN, "d", "", "postgres dsn")
	fs.StringVar(&opts.StorePath, "p", "data/notekeeper", "leveldb directory or sqlite file")
	fs.StringVar(&opts.Namespace, "n", address.DefaultNamespace, "address namespace")
	fs.StringVar(&opts.LogLevel, "l", "info", "log level")
	fs.StringVar(&opts.TLSCert, "tls-cert", "", "TLS certificate file")
	fs.StringVar(&opts.TLSKey, "tls-key", "", "TLS key file")
	fs.DurationVar(&opts.AuthMaxSkew.Duration, "max-skew", opts.AuthMaxSkew.Duration, "maximum request signature age")
	fs.StringVar(&opts.Config, "config", "config.json", "path to config file")
	fs.StringVar(&opts.Config, "c", "config.json", "path to config file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if configPath := getenv("CONFIG"); configPath != "" {
		opts.Config = configPath
	}

	if opts.Config != "" {
		if _, err := os.Stat(opts.Config); err == nil {
			if err := loadFile(opts.Config, opts); err != nil {
				return nil, err
			}
		}
	}

	if v := getenv("SERVER_ADDRESS"); v != "" {
		opts.Address = v
	}
	if v := getenv("DATABASE_DSN"); v != "" {
		opts.DatabaseDSN = v
	}
	if v := getenv("STORE_DRIVER"); v != "" {
		opts.StoreDriver = v
	}
	if v := getenv("STORE_PATH"); v != "" {
		opts.StorePath = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		opts.LogLevel = v
	}

	if err := opts.validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

func loadFile(path string, opts *Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, opts)
	default:
		err = json.Unmarshal(data, opts)
	}
	if err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	return nil
}

func (o *Options) validate() error {
	switch o.StoreDriver {
	case DriverMemory, DriverLevelDB, DriverSQLite:
	case DriverPostgres:
		if o.DatabaseDSN == "" {
			return errors.New("postgres store requires a database dsn")
		}
	default:
		return fmt.Errorf("unknown store driver %q", o.StoreDriver)
	}
	if (o.TLSCert == "") != (o.TLSKey == "") {
		return errors.New("tls cert and key must be set together")
	}
	if o.AuthMaxSkew.Duration <= 0 {
		return errors.New("auth max skew must be positive")
	}
	if o.PruneInterval.Duration <= 0 {
		return errors.New("prune interval must be positive")
	}
	return nil
}
