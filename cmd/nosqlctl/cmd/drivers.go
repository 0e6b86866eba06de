package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/redbco/redb-nosql/cmd/nosqlctl/internal/drivers"
	"github.com/redbco/redb-nosql/pkg/adapter"
)

// driversCmd represents the drivers command
var driversCmd = &cobra.Command{
	Use:   "drivers",
	Short: "List the available drivers",
	Long:  `Display every registered driver with its managers, TTL support, query language and default port.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := format()
		if err != nil {
			return err
		}
		return drivers.List(os.Stdout, f, adapter.GlobalRegistry())
	},
}

// parseURICmd represents the parse-uri command
var parseURICmd = &cobra.Command{
	Use:   "parse-uri [uri]",
	Short: "Parse a connection string",
	Long:  `Display the driver, hosts, credentials and parameters read from a connection string such as mongodb://h1,h2/db.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := format()
		if err != nil {
			return err
		}
		return drivers.ParseURI(os.Stdout, f, args[0])
	},
}

var (
	translateDriver string
	translateQuery  string
	translateDelete bool
)

// translateCmd represents the translate command
var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Show the native form of a query",
	Long:  `Translate a query file into the native query language of a driver without connecting.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := format()
		if err != nil {
			return err
		}
		return drivers.Translate(os.Stdout, f, adapter.GlobalRegistry(), translateDriver, translateQuery, translateDelete)
	},
}

func init() {
	translateCmd.Flags().StringVar(&translateDriver, "driver", "", "Driver name or alias, e.g. mongodb or es")
	translateCmd.Flags().StringVar(&translateQuery, "query", "", "Query file (YAML or JSON)")
	translateCmd.Flags().BoolVar(&translateDelete, "delete", false, "Translate the query as a delete")
	_ = translateCmd.MarkFlagRequired("driver")
	_ = translateCmd.MarkFlagRequired("query")
}
