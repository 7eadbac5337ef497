package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/merabytes/acido/pkg/acido"
	"github.com/merabytes/acido/pkg/fleet"
)

var fleetCmd = &cobra.Command{
	Use:   "fleet NAME",
	Short: "Shard an input file across container groups and run a task against each shard",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFleetLike(cmd, args[0], false)
	},
}

var runCmd = &cobra.Command{
	Use:   "run NAME",
	Short: "Run a task against a single container instance (a one-instance fleet)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFleetLike(cmd, args[0], true)
	},
}

func runFleetLike(cmd *cobra.Command, name string, singleInstance bool) error {
	numInstances, _ := cmd.Flags().GetInt("num-instances")
	image, _ := cmd.Flags().GetString("image")
	if image == "" {
		image, _ = cmd.Flags().GetString("im")
	}
	task, _ := cmd.Flags().GetString("task")
	inputFile, _ := cmd.Flags().GetString("input-file")
	waitSeconds, _ := cmd.Flags().GetInt("wait")
	output, _ := cmd.Flags().GetString("output")
	rmWhenDone, _ := cmd.Flags().GetBool("rm-when-done")
	regions, _ := cmd.Flags().GetStringArray("region")
	quiet, _ := cmd.Flags().GetBool("quiet")

	if image == "" {
		return withExitCode(1, fmt.Errorf("--image is required"))
	}
	if task == "" {
		return withExitCode(1, fmt.Errorf("--task is required"))
	}
	if inputFile == "" && !singleInstance {
		return withExitCode(1, fmt.Errorf("--input-file is required"))
	}

	if singleInstance {
		numInstances = 1
	} else if numInstances <= 0 {
		return withExitCode(1, fmt.Errorf("--num-instances must be positive"))
	}

	d, err := loadDeps()
	if err != nil {
		return withExitCode(1, err)
	}
	if len(regions) == 0 {
		regions = []string{d.cfg.DefaultRegion}
	}

	subnetID := ""
	if d.cfg.SelectedNetworkStack != "" {
		subnetID = acido.DerivedNetworkStackNames(d.cfg.SelectedNetworkStack).SubnetName
	}

	inputPath := inputFile
	if singleInstance {
		path, cleanup, err := writeSingleLineInput(name)
		if err != nil {
			return withExitCode(1, err)
		}
		defer cleanup()
		inputPath = path
	}

	if !quiet {
		fmt.Printf("Starting fleet %q across %v with %d instance(s)...\n", name, regions, numInstances)
	}

	result, err := d.controller.Fleet(context.Background(), fleet.Request{
		Name:               name,
		NumInstances:       numInstances,
		Image:              image,
		Command:            task,
		InputPath:          inputPath,
		Regions:            regions,
		WaitSeconds:        waitSeconds,
		RemoveWhenDone:     rmWhenDone,
		OutputPath:         output,
		RegistryCredential: d.cfg.RegistryUsername,
		SubnetID:           subnetID,
	})
	if err != nil {
		return withExitCode(1, err)
	}

	if !quiet {
		fmt.Println(result.AggregateText)
		fmt.Printf("✓ Fleet %q finished (exit code %d)\n", name, result.ExitCode)
	}
	return withExitCode(result.ExitCode, exitError(result.ExitCode))
}

// exitError turns a non-zero fleet exit code into a sentinel error so
// cobra's Execute() path (which only looks at error-ness) still surfaces
// it; the real code travels via exitCodeWrapper.
func exitError(code int) error {
	if code == 0 {
		return nil
	}
	return fmt.Errorf("fleet completed with exit code %d", code)
}

func writeSingleLineInput(line string) (path string, cleanup func(), err error) {
	f, err := os.CreateTemp("", "acido-run-*.txt")
	if err != nil {
		return "", nil, fmt.Errorf("create input file: %w", err)
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("write input file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("close input file: %w", err)
	}
	name := f.Name()
	return name, func() { os.Remove(name) }, nil
}

func init() {
	for _, cmd := range []*cobra.Command{fleetCmd, runCmd} {
		cmd.Flags().IntP("num-instances", "n", 1, "Number of container instances (fleet only; run always uses 1)")
		cmd.Flags().String("image", "", "Container image reference")
		cmd.Flags().String("im", "", "Shorthand for --image")
		cmd.Flags().StringP("task", "t", "", "Command template run inside each container")
		cmd.Flags().StringP("input-file", "i", "", "Input file to shard across instances")
		cmd.Flags().IntP("wait", "w", 0, "Seconds to wait for completion before marking remaining instances timed out (0 = no deadline)")
		cmd.Flags().StringP("output", "o", "", "Write the aggregate report to this file")
		cmd.Flags().Bool("rm-when-done", true, "Tear down every group and artifact once the fleet finishes")
		cmd.Flags().StringArray("region", nil, "Region to place groups in (repeatable; default is the configured region)")
		cmd.Flags().BoolP("quiet", "q", false, "Suppress progress output")
	}
}
