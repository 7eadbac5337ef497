package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/merabytes/acido/pkg/acido"
	"github.com/merabytes/acido/pkg/fleet"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a Fleet manifest",
	Long: `Apply a Fleet resource from a YAML file instead of passing every
flag to "acido fleet" directly.

Example:
  acido apply -f scan.yaml`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "YAML manifest to apply (required)")
	_ = applyCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(applyCmd)
}

// FleetManifest is the declarative counterpart to the "acido fleet" flags,
// modeled on the apiVersion/kind/metadata/spec shape of a Kubernetes-style
// resource file.
type FleetManifest struct {
	APIVersion string    `yaml:"apiVersion"`
	Kind       string    `yaml:"kind"`
	Metadata   FleetMeta `yaml:"metadata"`
	Spec       FleetSpec `yaml:"spec"`
}

type FleetMeta struct {
	Name string `yaml:"name"`
}

type FleetSpec struct {
	Image          string   `yaml:"image"`
	Task           string   `yaml:"task"`
	InputFile      string   `yaml:"inputFile"`
	NumInstances   int      `yaml:"numInstances"`
	Regions        []string `yaml:"regions"`
	WaitSeconds    int      `yaml:"waitSeconds"`
	RemoveWhenDone *bool    `yaml:"removeWhenDone"`
	Output         string   `yaml:"output"`
	CPUCores       float64  `yaml:"cpuCores"`
	MemoryGB       float64  `yaml:"memoryGB"`
}

func runApply(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")

	data, err := os.ReadFile(filename)
	if err != nil {
		return withExitCode(1, fmt.Errorf("read manifest: %w", err))
	}

	var manifest FleetManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return withExitCode(1, fmt.Errorf("parse manifest: %w", err))
	}

	if manifest.Kind != "Fleet" {
		return withExitCode(1, fmt.Errorf("unsupported resource kind: %s", manifest.Kind))
	}
	if manifest.Metadata.Name == "" {
		return withExitCode(1, fmt.Errorf("metadata.name is required"))
	}

	d, err := loadDeps()
	if err != nil {
		return withExitCode(1, err)
	}

	spec := manifest.Spec
	regions := spec.Regions
	if len(regions) == 0 {
		regions = []string{d.cfg.DefaultRegion}
	}
	numInstances := spec.NumInstances
	if numInstances <= 0 {
		numInstances = 1
	}
	removeWhenDone := true
	if spec.RemoveWhenDone != nil {
		removeWhenDone = *spec.RemoveWhenDone
	}

	subnetID := ""
	if d.cfg.SelectedNetworkStack != "" {
		subnetID = acido.DerivedNetworkStackNames(d.cfg.SelectedNetworkStack).SubnetName
	}

	fmt.Printf("Applying Fleet %q across %v with %d instance(s)...\n", manifest.Metadata.Name, regions, numInstances)

	result, err := d.controller.Fleet(context.Background(), fleet.Request{
		Name:               manifest.Metadata.Name,
		NumInstances:       numInstances,
		Image:              spec.Image,
		Command:            spec.Task,
		InputPath:          spec.InputFile,
		Regions:            regions,
		WaitSeconds:        spec.WaitSeconds,
		RemoveWhenDone:     removeWhenDone,
		OutputPath:         spec.Output,
		RegistryCredential: d.cfg.RegistryUsername,
		SubnetID:           subnetID,
		Resources: acido.ResourceRequest{
			CPUCores: spec.CPUCores,
			MemoryGB: spec.MemoryGB,
		},
	})
	if err != nil {
		return withExitCode(1, err)
	}

	fmt.Println(result.AggregateText)
	fmt.Printf("✓ Fleet %q finished (exit code %d)\n", manifest.Metadata.Name, result.ExitCode)
	return withExitCode(result.ExitCode, exitError(result.ExitCode))
}
