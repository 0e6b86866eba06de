package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/redbco/redb-nosql/cmd/nosqlctl/internal/session"
	"github.com/redbco/redb-nosql/pkg/keyring"
)

const keyringTimeout = 5 * time.Second

func openKeyring() (keyring.Store, error) {
	return keyring.Open(keyring.DefaultPath(), keyring.MasterPasswordFromEnv(), keyringTimeout)
}

// credentialID returns the id argument, or the id of the configured connection.
func credentialID(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	s, err := session.LoadSettings(session.Options{ConfigPath: configFile})
	if err != nil {
		return "", err
	}
	return session.ConnectionID(s)
}

// credentialsCmd represents the credentials command
var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage stored connection passwords",
	Long: "Store connection passwords in the system keyring, or in an encrypted file when no keyring is " +
		"available. Commands use the stored password when the settings carry none.",
}

// setCredentialsCmd represents the credentials set command
var setCredentialsCmd = &cobra.Command{
	Use:   "set [connection-id]",
	Short: "Store the password for a connection",
	Long:  `Prompt for a password and store it for the connection id, or for the connection in --config when no id is given.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := credentialID(args)
		if err != nil {
			return err
		}
		password, err := session.ReadPassword(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		store, err := openKeyring()
		if err != nil {
			return err
		}
		if err := store.Set(id, password); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Stored password for %s\n", id)
		return nil
	},
}

// deleteCredentialsCmd represents the credentials delete command
var deleteCredentialsCmd = &cobra.Command{
	Use:   "delete [connection-id]",
	Short: "Remove the stored password for a connection",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := credentialID(args)
		if err != nil {
			return err
		}
		store, err := openKeyring()
		if err != nil {
			return err
		}
		if err := store.Delete(id); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Removed password for %s\n", id)
		return nil
	},
}

func init() {
	credentialsCmd.AddCommand(setCredentialsCmd)
	credentialsCmd.AddCommand(deleteCredentialsCmd)
}
