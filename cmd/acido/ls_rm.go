package main

import (
	"context"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List every container group acido currently knows about",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := loadDeps()
		if err != nil {
			return withExitCode(1, err)
		}

		groups, err := d.controller.List(context.Background())
		if err != nil {
			return withExitCode(1, err)
		}
		if len(groups) == 0 {
			fmt.Println("No container groups found")
			return nil
		}
		for _, name := range groups {
			fmt.Println(name)
		}
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm PATTERN",
	Short: "Delete every container group matching a glob pattern",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := loadDeps()
		if err != nil {
			return withExitCode(1, err)
		}

		removed, err := d.controller.Remove(context.Background(), args[0])
		if err != nil {
			return withExitCode(1, err)
		}
		if len(removed) == 0 {
			fmt.Println("No container groups matched")
			return nil
		}
		for _, name := range removed {
			fmt.Printf("✓ Removed %s\n", name)
		}
		return nil
	},
}

// selectCmd previews what `rm PATTERN` would remove, without deleting
// anything; useful to sanity-check a glob before running rm for real.
var selectCmd = &cobra.Command{
	Use:   "select PATTERN",
	Short: "Preview which container groups a glob pattern would match",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := loadDeps()
		if err != nil {
			return withExitCode(1, err)
		}

		groups, err := d.controller.List(context.Background())
		if err != nil {
			return withExitCode(1, err)
		}

		var matched []string
		for _, name := range groups {
			ok, err := doublestar.Match(args[0], name)
			if err != nil {
				return withExitCode(1, fmt.Errorf("invalid pattern %q: %w", args[0], err))
			}
			if ok {
				matched = append(matched, name)
			}
		}

		if len(matched) == 0 {
			fmt.Println("No container groups match")
			return nil
		}
		for _, name := range matched {
			fmt.Println(name)
		}
		return nil
	},
}
