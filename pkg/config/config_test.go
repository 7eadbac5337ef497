package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withHome(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
}

func TestLoad_MissingFileReturnsZeroValue(t *testing.T) {
	withHome(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.ResourceGroup)
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	withHome(t)

	cfg := &Config{
		SubscriptionID: "sub-1",
		ResourceGroup:  "rg-acido",
		DefaultRegion:  "eastus",
		RegistryServer: "registry.example.com",
	}
	require.NoError(t, Save(cfg))

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSave_FilePermissionsAreRestrictive(t *testing.T) {
	withHome(t)

	require.NoError(t, Save(&Config{ResourceGroup: "rg"}))

	path, err := Path()
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestVault_EncryptDecryptRoundTrip(t *testing.T) {
	withHome(t)

	v, err := OpenVault()
	require.NoError(t, err)

	ciphertext, err := v.Encrypt("super-secret-password")
	require.NoError(t, err)
	assert.NotContains(t, ciphertext, "super-secret-password")

	plaintext, err := v.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "super-secret-password", plaintext)
}

func TestVault_KeyPersistsAcrossOpens(t *testing.T) {
	withHome(t)

	v1, err := OpenVault()
	require.NoError(t, err)
	ciphertext, err := v1.Encrypt("reopen-me")
	require.NoError(t, err)

	v2, err := OpenVault()
	require.NoError(t, err)
	plaintext, err := v2.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "reopen-me", plaintext)
}

func TestVault_DecryptEmptyStringReturnsEmpty(t *testing.T) {
	withHome(t)

	v, err := OpenVault()
	require.NoError(t, err)

	plaintext, err := v.Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, plaintext)
}
