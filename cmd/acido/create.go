package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create IMAGE_REF",
	Short: "Build and push a scanner image via the external image-builder tool",
	Long: `Invokes the image-builder binary named by --builder (or the
ACIDO_IMAGE_BUILDER environment variable) to produce and push the image
IMAGE_REF. acido treats the builder as an opaque external tool: it only
passes the image reference and extra build args through argv, never a
host shell, so nothing in the build context can inject shell syntax.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		builder, _ := cmd.Flags().GetString("builder")
		if builder == "" {
			builder = os.Getenv("ACIDO_IMAGE_BUILDER")
		}
		if builder == "" {
			return withExitCode(1, fmt.Errorf("--builder or ACIDO_IMAGE_BUILDER must name the image-builder tool"))
		}
		buildArgs, _ := cmd.Flags().GetStringArray("build-arg")

		argv := append([]string{args[0]}, buildArgs...)
		proc := exec.CommandContext(context.Background(), builder, argv...)
		proc.Stdout = os.Stdout
		proc.Stderr = os.Stderr
		proc.Stdin = os.Stdin

		if err := proc.Run(); err != nil {
			return withExitCode(1, fmt.Errorf("image builder: %w", err))
		}

		fmt.Printf("✓ Image %q built\n", args[0])
		return nil
	},
}

func init() {
	createCmd.Flags().String("builder", "", "Path to the image-builder binary (default: $ACIDO_IMAGE_BUILDER)")
	createCmd.Flags().StringArray("build-arg", nil, "Extra argument passed through to the builder (repeatable)")
	rootCmd.AddCommand(createCmd)
}
