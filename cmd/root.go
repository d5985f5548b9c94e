// Package cmd implements the aeoscan command-line interface.
package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/aeoscan/cmd/httpd"
	"github.com/jonesrussell/aeoscan/cmd/rescan"
	cmdscan "github.com/jonesrussell/aeoscan/cmd/scan"
)

// cfgFile holds the path to the configuration file.
var cfgFile string

// rootCmd represents the root command for the aeoscan CLI.
var rootCmd = &cobra.Command{
	Use:   "aeoscan",
	Short: "Answer-engine readiness auditor",
	Long: `aeoscan crawls a site within strict resource budgets, groups its pages
into template clusters, scores representatives against an evaluation
rubric and reports the issues most worth fixing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	// Load .env early so environment variables are available to viper.
	_ = godotenv.Load()

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml or ./config/config.yaml)",
	)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("aeoscan version %s\n", "1.0.0")
		},
	})

	rootCmd.AddCommand(cmdscan.Command())
	rootCmd.AddCommand(httpd.Command())
	rootCmd.AddCommand(rescan.Command())
}
