// Package main provides the neosierra binary entry point.
// neosierra compiles visual graph query models to Cypher, translates Cypher back into
// models, and keeps a model file and a query file in sync.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	neosierra "github.com/saulfrancisco-ruizacevedo/go-neosierra"
	"github.com/saulfrancisco-ruizacevedo/go-neosierra/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "neosierra"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries what every command needs once flags are parsed.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

func rootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Visual graph query compiler and synchronizer",
		Long: `neosierra turns visual graph query models into Cypher and back.

It provides:
- compile: model file to query text
- translate: query text to model file, reusing a previous model
- schema: schema discovery against a Neo4j database
- run: execute a model against a Neo4j database
- sync: keep a model file and a query file in step`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		compileCmd(a),
		translateCmd(a),
		schemaCmd(a),
		runCmd(a),
		syncCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

func (a *app) setup(stderr io.Writer) error {
	cfg, err := config.NewLoader(nil).Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)
	return nil
}

// connect opens the configured database. Tests replace it with a fake.
var connect = func(ctx context.Context, cfg *config.Config) (neosierra.DBRunner, func(), error) {
	exec, err := neosierra.NewNeo4jExecutor(cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password, cfg.EffectiveDatabase())
	if err != nil {
		return nil, nil, err
	}
	if err := exec.Verify(ctx); err != nil {
		_ = exec.Close(ctx)
		return nil, nil, fmt.Errorf("could not connect to %s: %w", cfg.Neo4j.URI, err)
	}
	return exec, func() { _ = exec.Close(context.Background()) }, nil
}
