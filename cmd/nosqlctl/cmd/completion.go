package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/redbco/redb-nosql/pkg/adapter"
)

// driverNameCompletion completes registered driver names
func driverNameCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var names []string
	for _, id := range adapter.ListRegistered() {
		if strings.HasPrefix(string(id), toComplete) {
			names = append(names, string(id))
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

// outputFormatCompletion completes --output values
func outputFormatCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{"table", "json", "yaml"}, cobra.ShellCompDirectiveNoFileComp
}

// fileCompletion limits completion to query and data files
func fileCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{"yaml", "yml", "json"}, cobra.ShellCompDirectiveFilterFileExt
}

// setupCustomCompletions sets up custom completion functions for commands
func setupCustomCompletions() {
	_ = rootCmd.RegisterFlagCompletionFunc("output", outputFormatCompletion)
	_ = translateCmd.RegisterFlagCompletionFunc("driver", driverNameCompletion)

	for _, c := range []*cobra.Command{translateCmd, selectCmd, deleteCmd} {
		_ = c.RegisterFlagCompletionFunc("query", fileCompletion)
	}
	for _, c := range []*cobra.Command{insertCmd, updateCmd} {
		_ = c.RegisterFlagCompletionFunc("data", fileCompletion)
	}
}
