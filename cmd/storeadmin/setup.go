// ABOUTME: First-run commands: init writes a config, bootstrap creates the first user
// ABOUTME: token issues an API bearer token for an existing user

package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/2389/storeadmin/internal/auth"
	"github.com/2389/storeadmin/internal/config"
	"github.com/2389/storeadmin/internal/resource"
	"github.com/2389/storeadmin/internal/store"
)

// getDataPath returns the storeadmin data directory.
// Priority: XDG_DATA_HOME/storeadmin > ~/.local/share/storeadmin
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "storeadmin")
}

type initOptions struct {
	httpAddr string
	dbPath   string
	force    bool
}

func newInitCmd() *cobra.Command {
	opts := initOptions{}
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a new config file with a random JWT secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(configPath); err == nil && !opts.force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", configPath)
			}
			if err := writeConfig(configPath, opts); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			color.New(color.FgGreen).Fprintf(out, "  ✓ Created config: %s\n", configPath)
			fmt.Fprintln(out, "\nTo create the first user:")
			fmt.Fprintln(out, "  storeadmin bootstrap --username admin --password <password>")
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", "localhost:8080", "HTTP listen address")
	cmd.Flags().StringVar(&opts.dbPath, "db", filepath.Join(getDataPath(), "storeadmin.db"), "SQLite database path")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "overwrite an existing config")
	return cmd
}

func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating JWT secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// writeConfig renders a YAML config with a fresh secret.
func writeConfig(path string, opts initOptions) error {
	secret, err := generateSecret()
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("# storeadmin configuration\n")
	b.WriteString("# Generated by storeadmin init\n\n")

	b.WriteString("server:\n")
	fmt.Fprintf(&b, "  http_addr: %q\n", opts.httpAddr)
	b.WriteString("  read_header_timeout: \"10s\"\n")
	b.WriteString("  shutdown_timeout: \"15s\"\n\n")

	b.WriteString("database:\n")
	b.WriteString("  driver: \"sqlite\"\n")
	fmt.Fprintf(&b, "  path: %q\n\n", opts.dbPath)

	b.WriteString("auth:\n")
	fmt.Fprintf(&b, "  jwt_secret: %q\n", secret)
	b.WriteString("  token_ttl: \"720h\"\n\n")

	b.WriteString("cors:\n")
	b.WriteString("  allowed_origin: \"*\"\n\n")

	b.WriteString("logging:\n")
	b.WriteString("  level: \"info\"\n")
	b.WriteString("  format: \"text\"\n\n")

	b.WriteString("metrics:\n")
	b.WriteString("  enabled: false\n")
	b.WriteString("  path: \"/metrics\"\n\n")

	b.WriteString("events:\n")
	b.WriteString("  enabled: false\n")
	b.WriteString("  kafka:\n")
	b.WriteString("    brokers: [\"localhost:9092\"]\n")
	b.WriteString("    topic: \"storeadmin.changes\"\n\n")

	b.WriteString("webadmin:\n")
	b.WriteString("  enabled: true\n")
	b.WriteString("  session_duration: \"168h\"\n")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func openStore(cfg *config.Config) (*store.SQLStore, error) {
	s, err := store.Open(store.Options{
		Driver: cfg.Database.Driver,
		Path:   cfg.Database.Path,
		DSN:    cfg.Database.DSN,
	}, resource.DefaultRegistry())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return s, nil
}

// issueToken signs a token for userID and saves it next to the config.
func issueToken(cfg *config.Config, userID string) (token, tokenPath string, err error) {
	verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return "", "", fmt.Errorf("creating JWT verifier: %w", err)
	}
	token, err = verifier.Generate(userID, cfg.Auth.TokenTTL)
	if err != nil {
		return "", "", fmt.Errorf("generating token: %w", err)
	}
	tokenPath = filepath.Join(filepath.Dir(configPath), "token")
	if err := os.WriteFile(tokenPath, []byte(token), 0600); err != nil {
		return "", "", fmt.Errorf("writing token file: %w", err)
	}
	return token, tokenPath, nil
}

type bootstrapOptions struct {
	username    string
	password    string
	displayName string
}

func newBootstrapCmd() *cobra.Command {
	opts := bootstrapOptions{}
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the first dashboard user and an API token",
		Long: "Creates the config (if missing), the database and the first user, " +
			"then saves a bearer token next to the config file.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.password == "" {
				opts.password = os.Getenv("STOREADMIN_PASSWORD")
			}
			return runBootstrap(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.username, "username", "u", "", "username for the first user (required)")
	cmd.Flags().StringVarP(&opts.password, "password", "p", "", "password (env STOREADMIN_PASSWORD)")
	cmd.Flags().StringVar(&opts.displayName, "name", "", "display name, defaults to the username")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func runBootstrap(ctx context.Context, out io.Writer, opts bootstrapOptions) error {
	username := strings.TrimSpace(opts.username)
	if username == "" {
		return errors.New("username cannot be empty or whitespace only")
	}
	if len(username) > 100 {
		return errors.New("username exceeds maximum length of 100 characters")
	}
	displayName := strings.TrimSpace(opts.displayName)
	if displayName == "" {
		displayName = username
	}

	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		if err := writeConfig(configPath, initOptions{
			httpAddr: "localhost:8080",
			dbPath:   filepath.Join(getDataPath(), "storeadmin.db"),
		}); err != nil {
			return err
		}
		green.Fprintf(out, "  ✓ Created config: %s\n", configPath)
	} else {
		cyan.Fprintf(out, "  Using existing config: %s\n", configPath)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	hash, err := auth.HashPassword(opts.password)
	if err != nil {
		return err
	}

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	green.Fprintf(out, "  ✓ Database: %s\n", cfg.Database.Driver)

	count, err := s.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("checking users: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("bootstrap already complete: %d user(s) exist", count)
	}

	user := &store.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hash,
		DisplayName:  displayName,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	green.Fprintf(out, "  ✓ Created user: %s\n", username)

	_, tokenPath, err := issueToken(cfg, user.ID)
	if err != nil {
		return err
	}
	green.Fprintf(out, "  ✓ Saved token: %s\n", tokenPath)

	fmt.Fprintln(out)
	green.Fprintln(out, "  Bootstrap complete!")
	fmt.Fprintln(out)
	cyan.Fprintln(out, "  User")
	cyan.Fprintln(out, "  ----")
	fmt.Fprintf(out, "  ID:           %s\n", user.ID)
	fmt.Fprintf(out, "  Username:     %s\n", user.Username)
	fmt.Fprintf(out, "  Display Name: %s\n", user.DisplayName)
	fmt.Fprintf(out, "  Token:        %s (expires %s)\n", tokenPath, time.Now().Add(cfg.Auth.TokenTTL).UTC().Format("Jan 02, 2006"))
	fmt.Fprintln(out)

	yellow.Fprintln(out, "  Ready to go:")
	fmt.Fprintln(out, "    storeadmin serve    # start the server")
	fmt.Fprintln(out)
	return nil
}

func newTokenCmd() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runToken(cmd.Context(), cmd.OutOrStdout(), username)
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "user to issue the token for (required)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func runToken(ctx context.Context, out io.Writer, username string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return fmt.Errorf("no user named %q", username)
		}
		return fmt.Errorf("looking up user: %w", err)
	}

	token, _, err := issueToken(cfg, user.ID)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}
