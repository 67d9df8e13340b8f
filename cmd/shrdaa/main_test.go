package main

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/shrdaa/backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("STORAGE_DIR", filepath.Join(dir, "db"))
	t.Setenv("LOG_LEVEL", "ERROR")

	out, err := run(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Storage initialized")

	out, err = run(t, "account", "create", "--name", "Asha", "--rank", "District Collector", "--password", "officer-pw")
	require.NoError(t, err)
	assert.Contains(t, out, "A00001")
	assert.Contains(t, out, "Govt_officer")

	out, err = run(t, "account", "create", "--name", "Ravi", "--rank", "Farmer", "--password", "farmer-pw")
	require.NoError(t, err)
	assert.Contains(t, out, "A00002")

	_, err = run(t, "account", "create", "--rank", "Farmer", "--password", "pw")
	assert.Error(t, err)

	out, err = run(t, "project", "create", "--accounts", "A00001,A00002", "--description", "Irrigation canal")
	require.NoError(t, err)
	assert.Equal(t, "P00001\n", out)

	_, err = run(t, "transfer", "--from", "A00001", "--to", "A00002", "--project", "P00001", "--amount", "500", "--password", "wrong")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	out, err = run(t, "transfer", "--from", "A00001", "--to", "A00002", "--project", "P00001", "--amount", "500", "--password", "officer-pw")
	require.NoError(t, err)
	assert.Contains(t, out, "T000001")

	out, err = run(t, "verify", "T000001")
	require.NoError(t, err)
	assert.Contains(t, out, "Transaction T000001 verified")

	_, err = run(t, "verify", "T000001")
	assert.ErrorIs(t, err, services.ErrAlreadyVerified)

	out, err = run(t, "verify-chain")
	require.NoError(t, err)
	assert.Contains(t, out, "Chain intact, 1 blocks")

	out, err = run(t, "ledger", "P00001")
	require.NoError(t, err)
	assert.Contains(t, out, "T000001")
	assert.Contains(t, out, "done")

	out, err = run(t, "projects")
	require.NoError(t, err)
	assert.Contains(t, out, "Irrigation canal")

	out, err = run(t, "account", "show", "A00002")
	require.NoError(t, err)
	assert.Contains(t, out, "1000500")
}

func TestCLI_BadConfig(t *testing.T) {
	chdir(t, t.TempDir())
	_, err := run(t, "--config", "missing.yaml", "projects")
	assert.Error(t, err)
}

func TestCLI_ServeRequiresSecret(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("STORAGE_DIR", filepath.Join(dir, "db"))
	t.Setenv("JWT_SECRET_KEY", "")

	_, err := run(t, "serve")
	assert.ErrorContains(t, err, "jwt.secret_key")
}
