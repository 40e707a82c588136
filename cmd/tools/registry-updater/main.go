// cmd/tools/registry-updater/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var registryPath string

var rootCmd = &cobra.Command{
	Use:   "registry-updater",
	Short: "Maintain the PagerDuty action registry",
	Long: `registry-updater edits the JSON file that lists which per-object
methods the pagerduty-action worker accepts for each entity.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&registryPath, "path", "configs/action-registry.json", "Path to registry file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
