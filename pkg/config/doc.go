// Package config loads and saves the orchestrator's persisted
// configuration (~/.acido/config.json): resource group, registry
// credentials, blob-store account, optional managed-identity id, and the
// currently selected NetworkStack. Registry passwords are never stored in
// the clear — they pass through Vault, an AES-256-GCM box keyed by a
// locally generated key file.
package config
