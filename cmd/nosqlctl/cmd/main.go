package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	configFile   string
	outputFormat string
	logLevel     string
	askPassword  bool
	version      = "0.0.1"
	// Build information variables
	Version   = "dev"     // Default version for development
	GitCommit = "unknown" // Git commit hash
	BuildTime = "unknown" // Build timestamp
)

// printVersionInfo displays detailed version information
func printVersionInfo() {
	fmt.Printf("nosqlctl v%s (build %s)\n", version, Version)
	fmt.Printf("Built: %s, from commit: %s\n", BuildTime, GitCommit)
	fmt.Printf("Go version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nosqlctl",
	Short: "Vendor-neutral NoSQL command line client",
	Long: "Query, write and inspect document, column and key-value stores through one vendor-neutral " +
		"query model, and show how queries translate into each store's native language.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Check if --version flag is set
		if cmd.Flags().Lookup("version") != nil && cmd.Flags().Lookup("version").Changed {
			printVersionInfo()
			return nil
		}
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a settings file with the nosql.* keys (YAML, JSON, TOML or properties)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "Output format: table, json or yaml (default table on a terminal, json otherwise)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level written to stderr")
	rootCmd.PersistentFlags().BoolVar(&askPassword, "ask-password", false, "Prompt for the database password")

	// Add version flag
	rootCmd.Flags().Bool("version", false, "Show version information and exit")

	// Setup all commands
	setupCommands()

	// Setup completion
	setupCompletion()
}

func main() {
	Execute()
}
