package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigCreatesDefault(t *testing.T) {
	ResetForTest()
	dir := t.TempDir()

	require.NoError(t, LoadConfig(dir))

	cfg, err := GetConfig()
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, cfg.SchemaVersion)
	assert.Equal(t, "compass.db", cfg.Database.Path)
	assert.Equal(t, 2, cfg.Journey.ArtifactWindowSize)
	assert.Equal(t, ":8080", cfg.Server.Addr)

	// Default should have been persisted.
	_, err = os.Stat(filepath.Join(dir, configFileName))
	assert.NoError(t, err)
}

func TestLoadConfigReadsExisting(t *testing.T) {
	ResetForTest()
	dir := t.TempDir()

	existing := DefaultConfig()
	existing.Database.Path = "custom.db"
	existing.Journey.ArtifactWindowSize = 4
	data, err := json.Marshal(existing)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), data, 0644))

	require.NoError(t, LoadConfig(dir))

	cfg, err := GetConfig()
	require.NoError(t, err)
	assert.Equal(t, "custom.db", cfg.Database.Path)
	assert.Equal(t, 4, cfg.Journey.ArtifactWindowSize)
}

func TestLoadConfigRejectsBadSchemaVersion(t *testing.T) {
	ResetForTest()
	dir := t.TempDir()

	bad := DefaultConfig()
	bad.SchemaVersion = 99
	data, err := json.Marshal(bad)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), data, 0644))

	err = LoadConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema version")
}

func TestGetConfigBeforeLoad(t *testing.T) {
	ResetForTest()

	_, err := GetConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not loaded")
}

func TestGetConfigReturnsCopy(t *testing.T) {
	ResetForTest()
	dir := t.TempDir()
	require.NoError(t, LoadConfig(dir))

	cfg, err := GetConfig()
	require.NoError(t, err)
	cfg.Database.Path = "mutated.db"

	fresh, err := GetConfig()
	require.NoError(t, err)
	assert.Equal(t, "compass.db", fresh.Database.Path)
}

func TestUpdateJourneyPersists(t *testing.T) {
	ResetForTest()
	dir := t.TempDir()
	require.NoError(t, LoadConfig(dir))

	require.NoError(t, UpdateJourney(JourneyConfig{ArtifactWindowSize: 5}))

	cfg, err := GetConfig()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Journey.ArtifactWindowSize)

	// Reload from disk and verify the write stuck.
	ResetForTest()
	require.NoError(t, LoadConfig(dir))
	cfg, err = GetConfig()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Journey.ArtifactWindowSize)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Database.Path = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Server.Addr = ""
	assert.Error(t, cfg.Validate())
}

func TestSecretsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	SetDecryptedSecrets(nil)

	secrets := map[string]string{
		"MLS_FEED_TOKEN": "tok-123",
		"ASSISTANT_KEY":  "key-456",
	}
	require.NoError(t, EncryptSecretsFile(dir, "hunter2", secrets))
	assert.True(t, SecretsFileExists(dir))

	// File must be 0600.
	info, err := os.Stat(filepath.Join(dir, secretsFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := DecryptSecretsFile(dir, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, secrets, got)
}

func TestSecretsWrongPassword(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, EncryptSecretsFile(dir, "correct", map[string]string{"K": "v"}))

	_, err := DecryptSecretsFile(dir, "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decrypt")
}

func TestGetSecretPrecedence(t *testing.T) {
	SetDecryptedSecrets(map[string]string{"MLS_FEED_TOKEN": "from-file"})
	t.Setenv("MLS_FEED_TOKEN", "from-env")
	t.Setenv("ENV_ONLY_SECRET", "env-value")

	value, err := GetSecret("MLS_FEED_TOKEN")
	require.NoError(t, err)
	assert.Equal(t, "from-file", value)

	value, err = GetSecret("ENV_ONLY_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "env-value", value)

	SetDecryptedSecrets(nil)
	_, err = GetSecret("NO_SUCH_SECRET")
	assert.Error(t, err)
}

func TestSetSecret(t *testing.T) {
	SetDecryptedSecrets(nil)
	SetSecret("NEW_SECRET", "val")

	value, err := GetSecret("NEW_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "val", value)
}
