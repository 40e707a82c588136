package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"pagerduty-workers/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRegistryUpdater(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "action-registry.json")

	out, err := run(t, "init", "--path", path, "--force=false")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote registry")

	_, err = run(t, "init", "--path", path, "--force=false")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = run(t, "init", "--path", path, "--force")
	require.NoError(t, err)

	out, err = run(t, "validate", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Registry validation passed.")

	out, err = run(t, "add-method", "escalation_policies", "rotate", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Added method rotate to escalation_policies")
	assert.Contains(t, out, "Warning: the REST client has no mapping")

	reg, err := registry.LoadRegistry(path)
	require.NoError(t, err)
	assert.True(t, reg.HasMethod("escalation_policies", "rotate"))

	_, err = run(t, "validate", "--path", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escalation_policies.rotate")

	_, err = run(t, "add-method", "incidents", "create", "--path", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reserved")

	out, err = run(t, "list", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "incidents")
	assert.Contains(t, out, "acknowledge")
	assert.Contains(t, out, "[create schema]")
}

func TestRegistryUpdater_MissingFile(t *testing.T) {
	_, err := run(t, "list", "--path", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
