package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validOptions() Options {
	return Options{
		Addr:           "localhost:8080",
		DBDriver:       "postgres",
		DSN:            "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable",
		SigningKey:     "c29tZV9zZWNyZXQ=",
		AllowedOrigins: []string{"http://localhost:3000"},
		FormRate:       5,
		FormBurst:      3,
	}
}

func TestNewConfig(t *testing.T) {
	tcases := []struct {
		name   string
		modify func(o *Options)
		err    bool
	}{
		{
			name:   "valid config",
			modify: func(o *Options) {},
		},
		{
			name:   "sqlite driver",
			modify: func(o *Options) { o.DBDriver = "SQLite"; o.DSN = "studyhub.db" },
		},
		{
			name:   "empty address",
			modify: func(o *Options) { o.Addr = "" },
			err:    true,
		},
		{
			name:   "empty DSN",
			modify: func(o *Options) { o.DSN = "" },
			err:    true,
		},
		{
			name:   "empty signing key",
			modify: func(o *Options) { o.SigningKey = "" },
			err:    true,
		},
		{
			name:   "unknown driver",
			modify: func(o *Options) { o.DBDriver = "mysql" },
			err:    true,
		},
		{
			name:   "zero form rate",
			modify: func(o *Options) { o.FormRate = 0 },
			err:    true,
		},
		{
			name:   "negative form burst",
			modify: func(o *Options) { o.FormBurst = -1 },
			err:    true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			opts := validOptions()
			tc.modify(&opts)

			config, err := NewConfig(opts)
			if tc.err {
				assert.Error(t, err, "expected error for config: %s", tc.name)
				return
			}
			assert.NoError(t, err, "expected no error for config: %s", tc.name)

			assert.Equal(t, opts.Addr, config.ServerAddr, "expected server address to match")
			assert.Equal(t, opts.DSN, config.DatabaseDSN, "expected database DSN to match")
			assert.Equal(t, opts.AllowedOrigins, config.AllowedOrigins, "expected allowed origins to match")
			assert.Contains(t, []string{DriverPostgres, DriverSQLite}, config.DatabaseDriver)
			assert.NotEmpty(t, config.SigningKey, "expected signing key to be decoded and not empty")
		})
	}

	t.Run("driver defaults to postgres", func(t *testing.T) {
		opts := validOptions()
		opts.DBDriver = ""
		config, err := NewConfig(opts)
		require.NoError(t, err)
		assert.Equal(t, DriverPostgres, config.DatabaseDriver)
	})
}

func Test_decodeSigningKey(t *testing.T) {
	tcases := []struct {
		name         string
		base64Secret string
		expectedKey  []byte
		expectError  bool
	}{
		{
			name:         "valid base64 secret",
			base64Secret: "c29tZV9zZWNyZXQ=",
			expectedKey:  []byte("some_secret"),
			expectError:  false,
		},
		{
			name:         "invalid base64 secret",
			base64Secret: "invalid_base64",
			expectedKey:  nil,
			expectError:  true,
		},
		{
			name:         "empty base64 secret",
			base64Secret: "",
			expectedKey:  nil,
			expectError:  true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			key, err := decodeSigningSecret(tc.base64Secret)
			if tc.expectError {
				assert.Error(t, err, "expected error for base64 secret: %s", tc.base64Secret)
			} else {
				assert.NoError(t, err, "expected no error for base64 secret: %s", tc.base64Secret)
				assert.Equal(t, tc.expectedKey, key, "expected decoded key to match for base64 secret: %s", tc.base64Secret)
			}
		})
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "studyhub.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestOptions_ApplyFile(t *testing.T) {
	path := writeConfigFile(t, `
addr = "0.0.0.0:9000"
db-driver = "sqlite"
dsn = "file:studyhub.db"
allowed-origins = ["https://studyhub.example"]
migrate = true
form-rate = 10.5
form-burst = 4
`)

	t.Run("fills unset values", func(t *testing.T) {
		opts := validOptions()
		require.NoError(t, opts.ApplyFile(path, map[string]bool{}))

		assert.Equal(t, "0.0.0.0:9000", opts.Addr)
		assert.Equal(t, "sqlite", opts.DBDriver)
		assert.Equal(t, "file:studyhub.db", opts.DSN)
		assert.Equal(t, []string{"https://studyhub.example"}, opts.AllowedOrigins)
		assert.True(t, opts.Migrate)
		assert.Equal(t, 10.5, opts.FormRate)
		assert.Equal(t, 4, opts.FormBurst)
		assert.Equal(t, "c29tZV9zZWNyZXQ=", opts.SigningKey, "expected keys missing from the file to be kept")
	})

	t.Run("explicit flags win", func(t *testing.T) {
		opts := validOptions()
		require.NoError(t, opts.ApplyFile(path, map[string]bool{"addr": true, "dsn": true}))

		assert.Equal(t, "localhost:8080", opts.Addr)
		assert.Equal(t, validOptions().DSN, opts.DSN)
		assert.Equal(t, "sqlite", opts.DBDriver)
	})

	t.Run("unknown keys", func(t *testing.T) {
		opts := validOptions()
		err := opts.ApplyFile(writeConfigFile(t, `port = 80`), nil)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		opts := validOptions()
		err := opts.ApplyFile(filepath.Join(t.TempDir(), "nope.toml"), nil)
		assert.Error(t, err)
	})
}
