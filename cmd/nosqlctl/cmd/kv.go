package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/redbco/redb-nosql/cmd/nosqlctl/internal/kv"
	"github.com/redbco/redb-nosql/cmd/nosqlctl/internal/output"
	"github.com/redbco/redb-nosql/cmd/nosqlctl/internal/session"
)

var (
	bucketName string
	putTTL     time.Duration
)

// kvCmd represents the kv command
var kvCmd = &cobra.Command{
	Use:   "kv",
	Short: "Read and write key-value buckets",
	Long:  `Commands for getting, putting and deleting values by key in a bucket of the configured connection.`,
}

// kvGetCmd represents the kv get command
var kvGetCmd = &cobra.Command{
	Use:   "get [key...]",
	Short: "Get values by key",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session.Session, f output.Format) error {
			b, err := s.Manager.Bucket(s.ID, bucketName)
			if err != nil {
				return err
			}
			return kv.Get(ctx, os.Stdout, f, b, args)
		})
	},
}

// kvPutCmd represents the kv put command
var kvPutCmd = &cobra.Command{
	Use:   "put [key] [value]",
	Short: "Store a value",
	Long:  `Store a value under a key. The value is read as YAML, so 42 is stored as a number and {"a": 1} as a document.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session.Session, f output.Format) error {
			b, err := s.Manager.Bucket(s.ID, bucketName)
			if err != nil {
				return err
			}
			return kv.Put(ctx, os.Stdout, b, args[0], args[1], putTTL)
		})
	},
}

// kvDeleteCmd represents the kv delete command
var kvDeleteCmd = &cobra.Command{
	Use:   "delete [key...]",
	Short: "Delete values by key",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session.Session, f output.Format) error {
			b, err := s.Manager.Bucket(s.ID, bucketName)
			if err != nil {
				return err
			}
			return kv.Delete(ctx, os.Stdout, b, args)
		})
	},
}

func init() {
	kvCmd.PersistentFlags().StringVar(&bucketName, "bucket", "", "Bucket name")
	_ = kvCmd.MarkPersistentFlagRequired("bucket")

	kvPutCmd.Flags().DurationVar(&putTTL, "ttl", 0, "Expire the value after this duration")

	kvCmd.AddCommand(kvGetCmd)
	kvCmd.AddCommand(kvPutCmd)
	kvCmd.AddCommand(kvDeleteCmd)
}
