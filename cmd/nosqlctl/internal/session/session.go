// Package session opens the single connection a nosqlctl command works against.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/redbco/redb-nosql/internal/database"
	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/keyring"
	"github.com/redbco/redb-nosql/pkg/logger"
	"github.com/redbco/redb-nosql/pkg/settings"
)

// EnvPrefix is prepended to the environment variables read for settings, so
// NOSQLCTL_NOSQL_HOST sets nosql.host.
const EnvPrefix = "NOSQLCTL"

// Options control how a session is opened.
type Options struct {
	ConfigPath string
	LogLevel   string

	// AskPassword prompts on the terminal for nosql.password.
	AskPassword bool
	Prompt      io.Writer

	// OpenKeyring is called when no password is configured; the password stored
	// for the connection id is used when present.
	OpenKeyring func() (keyring.Store, error)
}

// Session is an open connection together with its manager.
type Session struct {
	ID      string
	Manager *database.ConnectionManager
	Logger  *logger.Logger
}

// LoadSettings reads the configuration file and the environment.
func LoadSettings(opts Options) (*settings.Settings, error) {
	s, err := settings.Load(opts.ConfigPath, EnvPrefix, adapter.StandardKeys...)
	if err != nil {
		return nil, err
	}
	if opts.AskPassword {
		password, err := ReadPassword(opts.Prompt)
		if err != nil {
			return nil, err
		}
		s.Set(adapter.KeyPassword, password)
		return s, nil
	}
	if opts.OpenKeyring != nil && !s.Has(adapter.KeyPassword) {
		if err := passwordFromKeyring(s, opts.OpenKeyring); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ConnectionID returns the id a connection from s is registered and stored under.
func ConnectionID(s *settings.Settings) (string, error) {
	cfg, err := adapter.ConfigFromSettings(s)
	if err != nil {
		return "", err
	}
	return cfg.DatabaseID, nil
}

func passwordFromKeyring(s *settings.Settings, open func() (keyring.Store, error)) error {
	id, err := ConnectionID(s)
	if err != nil {
		// Connecting reports the configuration problem.
		return nil
	}
	store, err := open()
	if err != nil {
		return err
	}
	password, err := store.Get(id)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read password for %s from keyring: %w", id, err)
	}
	s.Set(adapter.KeyPassword, password)
	return nil
}

// ReadPassword prompts for a password on the terminal.
func ReadPassword(prompt io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("cannot prompt for a password: stdin is not a terminal")
	}
	if prompt == nil {
		prompt = os.Stderr
	}
	fmt.Fprint(prompt, "Password: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(string(password)), nil
}

// NewLogger returns the stderr logger used by commands.
func NewLogger(level, version string) (*logger.Logger, error) {
	if level == "" {
		level = "warn"
	}
	return logger.NewWithConfig(logger.Config{
		Level:       level,
		Development: true,
		Encoding:    "console",
		OutputPaths: []string{"stderr"},
	}, "nosqlctl", version)
}

// Open loads settings and connects through a connection manager.
func Open(ctx context.Context, opts Options, version string) (*Session, error) {
	s, err := LoadSettings(opts)
	if err != nil {
		return nil, err
	}
	log, err := NewLogger(opts.LogLevel, version)
	if err != nil {
		return nil, err
	}
	return OpenSettings(ctx, s, log, adapter.GlobalRegistry())
}

// OpenSettings connects using already loaded settings.
func OpenSettings(ctx context.Context, s *settings.Settings, log *logger.Logger, registry *adapter.Registry) (*Session, error) {
	cm := database.NewConnectionManager()
	cm.SetLogger(log)
	cm.SetRegistry(registry)

	id, err := cm.ConnectSettings(ctx, s)
	if err != nil {
		return nil, err
	}
	return &Session{ID: id, Manager: cm, Logger: log}, nil
}

// Close disconnects and flushes the logger.
func (s *Session) Close(ctx context.Context) error {
	err := s.Manager.DisconnectAll(ctx)
	_ = s.Logger.Sync()
	return err
}
