package main

import (
	"fmt"
	"os"
	"strings"

	"pagerduty-workers/internal/common/pagerduty"
	"pagerduty-workers/pkg/registry"

	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the built-in registry to --path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(registryPath); err == nil && !forceInit {
			return fmt.Errorf("%s already exists, use --force to overwrite", registryPath)
		}
		reg := registry.DefaultRegistry()
		reg.Touch()
		if err := reg.Save(registryPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote registry with %d entities to %s\n", len(reg.Entities), registryPath)
		return nil
	},
}

var addMethodCmd = &cobra.Command{
	Use:   "add-method <entity> <method>",
	Short: "Allow a per-object method on an entity",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		entity, method := args[0], args[1]

		reg, err := registry.LoadRegistry(registryPath)
		if err != nil {
			return err
		}
		if err := reg.AddMethod(entity, method); err != nil {
			return err
		}
		if err := reg.Validate(); err != nil {
			return err
		}
		if err := reg.Save(registryPath); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Added method %s to %s\n", method, entity)
		if !clientKnows(entity, method) {
			fmt.Fprintf(out, "Warning: the REST client has no mapping for %s.%s; jobs will fail with UNSUPPORTED_METHOD\n", entity, method)
		}
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print entities and their methods",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry.LoadRegistry(registryPath)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Registry version %s (updated %s)\n", reg.Version, reg.LastUpdated)
		for _, e := range reg.Entities {
			methods := "-"
			if len(e.Methods) > 0 {
				methods = strings.Join(e.Methods, ", ")
			}
			schema := ""
			if e.CreateSchema != nil {
				schema = " [create schema]"
			}
			fmt.Fprintf(out, "  %-22s %s%s\n", e.Name, methods, schema)
		}
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the registry file for consistency",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry.LoadRegistry(registryPath)
		if err != nil {
			return err
		}
		if err := reg.Validate(); err != nil {
			return fmt.Errorf("registry validation failed: %w", err)
		}

		var unmapped []string
		for _, e := range reg.Entities {
			for _, m := range e.Methods {
				if !clientKnows(e.Name, m) {
					unmapped = append(unmapped, e.Name+"."+m)
				}
			}
		}
		if len(unmapped) > 0 {
			return fmt.Errorf("registry validation failed: no REST mapping for %s", strings.Join(unmapped, ", "))
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Registry validation passed.")
		return nil
	},
}

func clientKnows(entity, method string) bool {
	for _, m := range pagerduty.Methods(entity) {
		if m == method {
			return true
		}
	}
	return false
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(addMethodCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(validateCmd)
}
