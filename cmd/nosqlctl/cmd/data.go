package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/redbco/redb-nosql/cmd/nosqlctl/internal/data"
	"github.com/redbco/redb-nosql/cmd/nosqlctl/internal/output"
	"github.com/redbco/redb-nosql/cmd/nosqlctl/internal/queryfile"
	"github.com/redbco/redb-nosql/cmd/nosqlctl/internal/session"
)

var (
	queryFile  string
	dataFile   string
	entityName string
	insertTTL  time.Duration
)

// pingCmd represents the ping command
var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check the configured connection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session.Session, f output.Format) error {
			return data.Ping(ctx, os.Stdout, f, s.Manager, s.ID)
		})
	},
}

// selectCmd represents the select command
var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Select entities",
	Long:  `Run the query file against the configured connection and display the matching entities.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := queryfile.Read(queryFile)
		if err != nil {
			return err
		}
		q, err := file.SelectQuery()
		if err != nil {
			return err
		}
		return withSession(cmd, func(ctx context.Context, s *session.Session, f output.Format) error {
			m, err := s.Manager.EntityManager(s.ID)
			if err != nil {
				return err
			}
			return data.Select(ctx, os.Stdout, f, m, q)
		})
	},
}

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete entities or fields",
	Long: "Delete the entities matching the query file. When the file lists fields only those fields are " +
		"removed from the matching entities.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := queryfile.Read(queryFile)
		if err != nil {
			return err
		}
		q, err := file.DeleteQuery()
		if err != nil {
			return err
		}
		return withSession(cmd, func(ctx context.Context, s *session.Session, f output.Format) error {
			m, err := s.Manager.EntityManager(s.ID)
			if err != nil {
				return err
			}
			return data.Delete(ctx, os.Stdout, m, q)
		})
	},
}

// countCmd represents the count command
var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Count entities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session.Session, f output.Format) error {
			m, err := s.Manager.EntityManager(s.ID)
			if err != nil {
				return err
			}
			return data.Count(ctx, os.Stdout, f, m, entityName)
		})
	},
}

// insertCmd represents the insert command
var insertCmd = &cobra.Command{
	Use:   "insert",
	Short: "Insert entities",
	Long:  `Insert the document, or list of documents, in the data file and display them as stored.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		entities, err := queryfile.ReadEntities(dataFile, entityName)
		if err != nil {
			return err
		}
		return withSession(cmd, func(ctx context.Context, s *session.Session, f output.Format) error {
			m, err := s.Manager.EntityManager(s.ID)
			if err != nil {
				return err
			}
			return data.Insert(ctx, os.Stdout, f, m, entities, insertTTL)
		})
	},
}

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update entities",
	Long:  `Replace stored entities with the documents in the data file. Each document must carry its key.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		entities, err := queryfile.ReadEntities(dataFile, entityName)
		if err != nil {
			return err
		}
		return withSession(cmd, func(ctx context.Context, s *session.Session, f output.Format) error {
			m, err := s.Manager.EntityManager(s.ID)
			if err != nil {
				return err
			}
			return data.Update(ctx, os.Stdout, f, m, entities)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{selectCmd, deleteCmd} {
		c.Flags().StringVar(&queryFile, "query", "", "Query file (YAML or JSON)")
		_ = c.MarkFlagRequired("query")
	}

	countCmd.Flags().StringVar(&entityName, "entity", "", "Entity name (collection, table, index or bucket)")
	_ = countCmd.MarkFlagRequired("entity")

	for _, c := range []*cobra.Command{insertCmd, updateCmd} {
		c.Flags().StringVar(&entityName, "entity", "", "Entity name (collection, table, index or bucket)")
		c.Flags().StringVar(&dataFile, "data", "", "Data file with a document or a list of documents (YAML or JSON)")
		_ = c.MarkFlagRequired("entity")
		_ = c.MarkFlagRequired("data")
	}
	insertCmd.Flags().DurationVar(&insertTTL, "ttl", 0, "Expire the inserted entities after this duration")
}
