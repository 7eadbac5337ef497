package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/merabytes/acido/pkg/config"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Write the persisted acido configuration",
	Long: `Write ~/.acido/config.json with the subscription, resource group,
default region, registry credentials, and blob-store account acido uses
for every later command. Flags left unset keep their previous value.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load existing config: %w", err)
		}

		setIfPresent(cmd, "subscription-id", &cfg.SubscriptionID)
		setIfPresent(cmd, "resource-group", &cfg.ResourceGroup)
		setIfPresent(cmd, "region", &cfg.DefaultRegion)
		setIfPresent(cmd, "registry-server", &cfg.RegistryServer)
		setIfPresent(cmd, "registry-username", &cfg.RegistryUsername)
		setIfPresent(cmd, "storage-account-url", &cfg.StorageAccountURL)
		setIfPresent(cmd, "blob-container", &cfg.BlobContainer)
		setIfPresent(cmd, "managed-identity-id", &cfg.ManagedIdentityID)

		if password, _ := cmd.Flags().GetString("registry-password"); password != "" {
			vault, err := config.OpenVault()
			if err != nil {
				return fmt.Errorf("open vault: %w", err)
			}
			encrypted, err := vault.Encrypt(password)
			if err != nil {
				return fmt.Errorf("encrypt registry password: %w", err)
			}
			cfg.RegistryPasswordEncrypted = encrypted
		}

		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		path, _ := config.Path()
		fmt.Printf("✓ Configuration written to %s\n", path)
		return nil
	},
}

func setIfPresent(cmd *cobra.Command, flag string, dst *string) {
	if v, _ := cmd.Flags().GetString(flag); v != "" {
		*dst = v
	}
}

func init() {
	configureCmd.Flags().String("subscription-id", "", "Azure subscription ID")
	configureCmd.Flags().String("resource-group", "", "Resource group that holds every container group, network stack, and storage account")
	configureCmd.Flags().String("region", "", "Default region used when a fleet request doesn't name one")
	configureCmd.Flags().String("registry-server", "", "Container registry login server")
	configureCmd.Flags().String("registry-username", "", "Container registry username")
	configureCmd.Flags().String("registry-password", "", "Container registry password (encrypted at rest)")
	configureCmd.Flags().String("storage-account-url", "", "Blob storage account URL used for shard and completion-marker artifacts")
	configureCmd.Flags().String("blob-container", "", "Blob container name for artifacts")
	configureCmd.Flags().String("managed-identity-id", "", "User-assigned managed identity resource ID (optional)")
}
