package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/merabytes/acido/pkg/acido"
	"github.com/merabytes/acido/pkg/config"
)

var ipCmd = &cobra.Command{
	Use:   "ip",
	Short: "Manage standalone egress NetworkStacks",
}

var ipCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a NetworkStack (public IP, egress gateway, vnet, delegated subnet)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := loadDeps()
		if err != nil {
			return withExitCode(1, err)
		}

		stack, err := d.network.Create(context.Background(), args[0])
		if err != nil {
			return withExitCode(1, err)
		}

		fmt.Printf("✓ NetworkStack %q created\n", args[0])
		fmt.Printf("  IP: %s\n", stack.IPv4)
		return nil
	},
}

var ipLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "Show the currently selected NetworkStack",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return withExitCode(1, err)
		}
		if cfg.SelectedNetworkStack == "" {
			fmt.Println("No NetworkStack selected")
			return nil
		}
		fmt.Println(cfg.SelectedNetworkStack)
		return nil
	},
}

var ipRmCmd = &cobra.Command{
	Use:   "rm NAME",
	Short: "Tear down a NetworkStack",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := loadDeps()
		if err != nil {
			return withExitCode(1, err)
		}

		stack := acido.DerivedNetworkStackNames(args[0])
		if err := d.network.Destroy(context.Background(), stack); err != nil {
			return withExitCode(1, err)
		}

		if d.cfg.SelectedNetworkStack == args[0] {
			d.cfg.SelectedNetworkStack = ""
			if err := config.Save(d.cfg); err != nil {
				return withExitCode(1, fmt.Errorf("clear selected network stack: %w", err))
			}
		}

		fmt.Printf("✓ NetworkStack %q removed\n", args[0])
		return nil
	},
}

var ipSelectCmd = &cobra.Command{
	Use:   "select NAME",
	Short: "Select the NetworkStack subsequent fleet/run commands attach to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return withExitCode(1, err)
		}
		cfg.SelectedNetworkStack = args[0]
		if err := config.Save(cfg); err != nil {
			return withExitCode(1, err)
		}
		fmt.Printf("✓ NetworkStack %q selected\n", args[0])
		return nil
	},
}

func init() {
	ipCmd.AddCommand(ipCreateCmd)
	ipCmd.AddCommand(ipLsCmd)
	ipCmd.AddCommand(ipRmCmd)
	ipCmd.AddCommand(ipSelectCmd)
}
