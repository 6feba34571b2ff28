package config

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	ServerAddr     string
	DatabaseDriver string
	DatabaseDSN    string
	SigningKey     []byte
	AllowedOrigins []string
	Migrate        bool
	// FormRate is the sustained number of side-channel form submissions
	// allowed per client and minute; FormBurst the number allowed at once.
	FormRate  float64
	FormBurst int
}

// Options are the raw settings as given on the command line or in a
// TOML file. The toml keys match the flag names.
type Options struct {
	Addr           string   `toml:"addr"`
	DBDriver       string   `toml:"db-driver"`
	DSN            string   `toml:"dsn"`
	SigningKey     string   `toml:"signing-key"`
	AllowedOrigins []string `toml:"allowed-origins"`
	Migrate        bool     `toml:"migrate"`
	FormRate       float64  `toml:"form-rate"`
	FormBurst      int      `toml:"form-burst"`
}

// ApplyFile reads the TOML file at path and copies every value whose flag
// was not set explicitly into o.
func (o *Options) ApplyFile(path string, explicit map[string]bool) error {
	var file Options
	md, err := toml.DecodeFile(path, &file)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown config keys: %v", undecoded)
	}

	set := func(key string) bool { return md.IsDefined(key) && !explicit[key] }
	if set("addr") {
		o.Addr = file.Addr
	}
	if set("db-driver") {
		o.DBDriver = file.DBDriver
	}
	if set("dsn") {
		o.DSN = file.DSN
	}
	if set("signing-key") {
		o.SigningKey = file.SigningKey
	}
	if set("allowed-origins") {
		o.AllowedOrigins = file.AllowedOrigins
	}
	if set("migrate") {
		o.Migrate = file.Migrate
	}
	if set("form-rate") {
		o.FormRate = file.FormRate
	}
	if set("form-burst") {
		o.FormBurst = file.FormBurst
	}

	return nil
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(base64Secret)
	if err != nil {
		return nil, err
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("empty signing secret")
	}
	return key, nil
}

func NewConfig(opts Options) (*Config, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if opts.DSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}
	if opts.SigningKey == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}

	driver := strings.ToLower(opts.DBDriver)
	switch driver {
	case "":
		driver = DriverPostgres
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unknown database driver %q", opts.DBDriver)
	}

	if opts.FormRate <= 0 {
		return nil, fmt.Errorf("form rate must be positive")
	}
	if opts.FormBurst <= 0 {
		return nil, fmt.Errorf("form burst must be positive")
	}

	// Decode the base64 encoded signing secret
	signingKey, err := decodeSigningSecret(opts.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	return &Config{
		ServerAddr:     opts.Addr,
		DatabaseDriver: driver,
		DatabaseDSN:    opts.DSN,
		SigningKey:     signingKey,
		AllowedOrigins: opts.AllowedOrigins,
		Migrate:        opts.Migrate,
		FormRate:       opts.FormRate,
		FormBurst:      opts.FormBurst,
	}, nil
}
