package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	neosierra "github.com/saulfrancisco-ruizacevedo/go-neosierra"
	"github.com/saulfrancisco-ruizacevedo/go-neosierra/compiler"
	"github.com/saulfrancisco-ruizacevedo/go-neosierra/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neosierra/watch"
)

func compileCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "compile MODEL",
		Short: "Compile a model file to query text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := watch.ReadModel(args[0])
			if err != nil {
				return err
			}
			res, err := compiler.Compile(m)
			if err != nil {
				return err
			}
			a.logger.Debug("compiled", "nodes", len(m.Nodes), "edges", len(m.Edges))
			return printQuery(cmd.OutOrStdout(), res.Query)
		},
	}
}

func translateCmd(a *app) *cobra.Command {
	var modelPath, schemaPath, outPath string

	cmd := &cobra.Command{
		Use:   "translate [QUERY]",
		Short: "Translate query text to a model",
		Long: `Translate reads query text from the QUERY file, or stdin when QUERY is
omitted or "-", and prints the resulting model as JSON. With --model the previous
model is reused: matched nodes keep their ids, positions and colours.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			opts := []neosierra.Option{neosierra.WithLogger(a.logger)}
			if modelPath != "" {
				prev, err := watch.ReadModel(modelPath)
				if err != nil {
					return err
				}
				opts = append(opts, neosierra.WithModel(prev))
			}
			if schemaPath != "" {
				schema, err := readSchema(schemaPath)
				if err != nil {
					return err
				}
				opts = append(opts, neosierra.WithSchema(schema))
			}

			m, err := neosierra.NewSession(nil, opts...).Translate(text)
			if err != nil {
				return err
			}
			if outPath != "" {
				return watch.WriteModel(outPath, m)
			}
			data, err := watch.EncodeModel("model.json", m)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&modelPath, "model", "m", "", "Previous model file to reuse")
	cmd.Flags().StringVarP(&schemaPath, "schema", "s", "", "Schema snapshot (YAML) to validate against")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the model to this file instead of stdout")
	return cmd
}

func schemaCmd(a *app) *cobra.Command {
	var database, outPath string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Discover the database schema and print it as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if database != "" {
				a.cfg.Neo4j.Database = database
			}
			ctx := cmd.Context()
			runner, closeDB, err := connect(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			schema, err := neosierra.NewSchemaService(runner, a.logger).Load(ctx)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(schema)
			if err != nil {
				return fmt.Errorf("failed to marshal schema: %w", err)
			}
			if outPath != "" {
				return os.WriteFile(outPath, data, 0644)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&database, "database", "d", "", "Database to inspect")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the snapshot to this file instead of stdout")
	return cmd
}

func runCmd(a *app) *cobra.Command {
	var database string

	cmd := &cobra.Command{
		Use:   "run MODEL",
		Short: "Execute a model against the database and print the matched graph as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := watch.ReadModel(args[0])
			if err != nil {
				return err
			}
			if database != "" {
				a.cfg.Neo4j.Database = database
			}
			ctx := cmd.Context()
			runner, closeDB, err := connect(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			session := neosierra.NewSession(runner, neosierra.WithLogger(a.logger))
			if _, err := session.Replace(m); err != nil {
				return err
			}
			res, err := session.Run(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVarP(&database, "database", "d", "", "Database to query")
	return cmd
}

func syncCmd(a *app) *cobra.Command {
	var offline bool
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "sync MODEL QUERY",
		Short: "Keep a model file and a query file in sync",
		Long: `Sync watches MODEL and QUERY. Saving the model regenerates the query; saving the
query translates it against the current model and rewrites the model. Unless
--offline is given, the database schema is loaded first and edits are validated
against it.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reg := prometheus.NewRegistry()
			opts := []neosierra.Option{
				neosierra.WithLogger(a.logger),
				neosierra.WithMetrics(neosierra.NewMetrics(reg)),
			}

			var runner neosierra.DBRunner
			if !offline {
				r, closeDB, err := connect(ctx, a.cfg)
				if err != nil {
					return err
				}
				defer closeDB()
				runner = r
			}
			session := neosierra.NewSession(runner, opts...)
			if runner != nil {
				if err := session.LoadSchema(ctx); err != nil {
					return err
				}
			}

			if metricsAddr != "" {
				srv := serveMetrics(a, metricsAddr, reg)
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			syncer, err := watch.NewSyncer(session, watch.Config{
				ModelPath: args[0],
				QueryPath: args[1],
				Debounce:  a.cfg.Sync.Debounce,
			}, a.logger)
			if err != nil {
				return err
			}
			if err := syncer.Start(ctx); err != nil {
				return err
			}
			defer syncer.Stop()

			for res := range syncer.Results() {
				if res.Err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", res.Direction, res.Err)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Do not connect to the database")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	return cmd
}

func serveMetrics(a *app, addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Metrics server failed", "addr", addr, "error", err)
		}
	}()
	a.logger.Info("Serving metrics", "addr", addr)
	return srv
}

func readInput(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		return string(data), err
	}
	data, err := os.ReadFile(args[0])
	return string(data), err
}

func readSchema(path string) (*graph.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var schema graph.Schema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("failed to parse schema file: %w", err)
	}
	return &schema, nil
}

func printQuery(w io.Writer, query string) error {
	if query == "" {
		return nil
	}
	_, err := fmt.Fprintln(w, query)
	return err
}
