package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/igsr/popdex"
	"github.com/igsr/popdex/internal/config"
	logpkg "github.com/igsr/popdex/internal/logger"
	"github.com/igsr/popdex/internal/version"
)

type rootFlags struct {
	env      string
	outDir   string
	parallel int
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:          "popexport",
		Short:        "Export IGSR population tables as TSV files",
		Version:      version.String(),
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.env, "env", config.GetEnv(), "config environment (config/<env>.yaml)")
	root.PersistentFlags().StringVarP(&flags.outDir, "out", "o", "", "output directory (default: export.output_dir)")
	root.PersistentFlags().IntVarP(&flags.parallel, "parallel", "p", 0, "concurrent exports (default: export.parallel)")

	root.AddCommand(newDataCollectionsCmd(flags), newSearchCmd(flags))
	return root
}

func newDataCollectionsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "data-collections DC [DC...]",
		Short: "Export the populations of each data collection to its own file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(flags)
			if err != nil {
				return err
			}
			defer app.close()

			jobs := make([]job, len(args))
			for i, dc := range args {
				jobs[i] = dataCollectionJob(dc)
			}
			return app.exporter.Run(cmd.Context(), jobs)
		},
	}
}

func newSearchCmd(flags *rootFlags) *cobra.Command {
	var (
		filename string
		rawQuery string
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Export the populations matching a query (all when no query is given)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if filename == "" {
				return errors.New("--filename is required")
			}
			var q popdex.Query
			if rawQuery != "" {
				if err := json.Unmarshal([]byte(rawQuery), &q); err != nil {
					return fmt.Errorf("parse --query: %w", err)
				}
			}

			app, err := newApp(flags)
			if err != nil {
				return err
			}
			defer app.close()

			return app.exporter.Run(cmd.Context(), []job{searchJob(filename, q)})
		},
	}
	cmd.Flags().StringVarP(&filename, "filename", "f", "", "export name; the file is written as <filename>.tsv")
	cmd.Flags().StringVarP(&rawQuery, "query", "q", "", "query document as JSON")
	return cmd
}

type app struct {
	exporter *Exporter
	logger   *zap.Logger
}

func newApp(flags *rootFlags) (*app, error) {
	cfg, err := config.Load(flags.env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(flags.env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	opts := []popdex.Option{
		popdex.WithBaseURL(cfg.Portal.BaseURL),
		popdex.WithTimeout(cfg.Portal.Timeout()),
		popdex.WithUserAgent(cfg.Portal.UserAgent),
		popdex.WithLogger(logger),
	}
	if cfg.Portal.RateLimitRPS > 0 {
		opts = append(opts, popdex.WithRateLimit(cfg.Portal.RateLimitRPS, cfg.Portal.RateLimitBurst))
	}
	client, err := popdex.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	outDir := flags.outDir
	if outDir == "" {
		outDir = cfg.Export.OutputDir
	}
	parallel := flags.parallel
	if parallel <= 0 {
		parallel = cfg.Export.Parallel
	}

	return &app{
		exporter: NewExporter(client.Populations(), outDir, parallel, logger),
		logger:   logger,
	}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}
