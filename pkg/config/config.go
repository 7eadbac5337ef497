package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	dirName  = ".acido"
	fileName = "config.json"
)

// Config is the on-disk configuration for the orchestrator. No fleet state
// is persisted here — only what's needed to authenticate and talk to the
// cloud provider.
type Config struct {
	SubscriptionID string `json:"subscription_id"`
	ResourceGroup  string `json:"resource_group"`
	DefaultRegion  string `json:"default_region"`

	RegistryServer            string `json:"registry_server"`
	RegistryUsername          string `json:"registry_username"`
	RegistryPasswordEncrypted string `json:"registry_password_encrypted"`

	StorageAccountURL string `json:"storage_account_url"`
	BlobContainer     string `json:"blob_container"`

	ManagedIdentityID    string `json:"managed_identity_id,omitempty"`
	SelectedNetworkStack string `json:"selected_network_stack,omitempty"`
}

// Dir returns ~/.acido, creating it (0700) if it doesn't exist.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home directory: %w", err)
	}
	dir := filepath.Join(home, dirName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("config: create %s: %w", dir, err)
	}
	return dir, nil
}

// Path returns the full path to config.json.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// Load reads and parses the persisted configuration. A missing file is not
// an error: it returns a zero-value Config so `acido configure` can fill
// it in from scratch.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes cfg to disk as indented JSON, mode 0600.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
