package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/redbco/redb-nosql/cmd/nosqlctl/internal/output"
	"github.com/redbco/redb-nosql/cmd/nosqlctl/internal/session"
)

// setupCommands initializes all commands and their relationships
func setupCommands() {
	// Commands that need no connection
	rootCmd.AddCommand(driversCmd)
	rootCmd.AddCommand(parseURICmd)
	rootCmd.AddCommand(translateCmd)

	// Entity commands
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(countCmd)
	rootCmd.AddCommand(insertCmd)
	rootCmd.AddCommand(updateCmd)

	// Key-value commands
	rootCmd.AddCommand(kvCmd)

	// Stored passwords
	rootCmd.AddCommand(credentialsCmd)
}

// setupCompletion adds shell completion support
func setupCompletion() {
	// Add completion command
	rootCmd.AddCommand(completionCmd)

	// Setup custom completions
	setupCustomCompletions()
}

func format() (output.Format, error) {
	return output.Resolve(outputFormat, os.Stdout)
}

// withSession opens the configured connection, runs fn and disconnects.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session.Session, f output.Format) error) error {
	f, err := format()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	s, err := session.Open(ctx, session.Options{
		ConfigPath:  configFile,
		LogLevel:    logLevel,
		AskPassword: askPassword,
		Prompt:      cmd.ErrOrStderr(),
		OpenKeyring: openKeyring,
	}, version)
	if err != nil {
		return err
	}
	runErr := fn(ctx, s, f)
	closeErr := s.Close(context.WithoutCancel(ctx))
	if runErr != nil {
		return runErr
	}
	return closeErr
}

// completionCmd represents the completion command
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate completion script",
	Long: `To load completions:

Bash:
  $ source <(nosqlctl completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ nosqlctl completion bash > /etc/bash_completion.d/nosqlctl
  # macOS:
  $ nosqlctl completion bash > /usr/local/etc/bash_completion.d/nosqlctl

Zsh:
  $ source <(nosqlctl completion zsh)

  # To load completions for each session, execute once:
  $ nosqlctl completion zsh > "${fpath[1]}/_nosqlctl"

Fish:
  $ nosqlctl completion fish | source

  # To load completions for each session, execute once:
  $ nosqlctl completion fish > ~/.config/fish/completions/nosqlctl.fish

PowerShell:
  PS> nosqlctl completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletion(os.Stdout)
		case "zsh":
			return cmd.Root().GenZshCompletion(os.Stdout)
		case "fish":
			return cmd.Root().GenFishCompletion(os.Stdout, true)
		default:
			return cmd.Root().GenPowerShellCompletion(os.Stdout)
		}
	},
}
