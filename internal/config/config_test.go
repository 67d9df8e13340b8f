package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		chdir(t, t.TempDir())

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "8080", cfg.Server.Port)
		assert.Equal(t, "csv", cfg.Storage.Driver)
		assert.Equal(t, "sha256", cfg.Security.PasswordScheme)
		assert.Equal(t, 24*time.Hour, cfg.JWT.Expiry())
		assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
		assert.True(t, cfg.Ledger.DefaultBalanceGovtOfficer.Equal(decimal.NewFromInt(100000000)))
		assert.True(t, cfg.Ledger.DefaultBalanceBeneficiary.Equal(decimal.NewFromInt(1000000)))
	})

	t.Run("environment overrides", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("STORAGE_DRIVER", "postgres")
		t.Setenv("JWT_EXPIRY_HOURS", "2")
		t.Setenv("DEFAULT_BALANCE_BENEFICIARY", "250.75")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "postgres", cfg.Storage.Driver)
		assert.Equal(t, 2*time.Hour, cfg.JWT.Expiry())
		assert.True(t, cfg.Ledger.DefaultBalanceBeneficiary.Equal(decimal.RequireFromString("250.75")))
	})

	t.Run("config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "shrdaa.yaml")
		require.NoError(t, os.WriteFile(path, []byte("storage:\n  dir: /var/lib/shrdaa\nlog:\n  format: json\n"), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "/var/lib/shrdaa", cfg.Storage.Dir)
		assert.Equal(t, "json", cfg.Log.Format)
	})

	t.Run("missing config file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid balance", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("DEFAULT_BALANCE_GOVT_OFFICER", "plenty")

		_, err := Load("")
		assert.Error(t, err)
	})
}
