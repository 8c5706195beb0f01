package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newIndexCmd(a *app) *cobra.Command {
	var recreate bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Create the POI index if it does not exist",
		Long: `Create the RediSearch POI index described by the search section of the config.

Use --recreate to drop and rebuild the index definition. Stored hashes are kept
and re-indexed by the server in the background.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if recreate {
				if err := a.pois.RecreateIndex(ctx); err != nil {
					return fmt.Errorf("recreate index: %w", err)
				}
				a.logger.Info("POI index recreated", zap.String("index", a.cfg.Search.Index))
				return nil
			}

			created, err := a.pois.EnsureIndex(ctx)
			if err != nil {
				return fmt.Errorf("ensure index: %w", err)
			}
			a.logger.Info("POI index ready", zap.String("index", a.cfg.Search.Index), zap.Bool("created", created))
			return nil
		},
	}
	cmd.Flags().BoolVar(&recreate, "recreate", false, "Drop and recreate the index definition")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var (
		file   string
		batch  int
		enrich bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import POIs from a JSON lines file",
		Long: `Read one POI object per line and upsert them in batches:

  {"id":"p1","name":"Bean There","lat":31.23,"lon":121.47,"amenity":"cafe",
   "popularity":42,"keywords":["coffee"],"key_phrases":["free wifi"]}

Invalid lines are logged and skipped. Use --file - to read stdin.

With --enrich, missing keywords, key_phrases, key_info and rewrites are generated
by the provider in the generation section of the config. A POI whose
enrichment fails is stored as read.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			in := os.Stdin
			if file != "-" {
				f, err := os.Open(filepath.Clean(file))
				if err != nil {
					return fmt.Errorf("open %s: %w", file, err)
				}
				defer func() { _ = f.Close() }()
				in = f
			}

			var enr poiEnricher
			if enrich {
				enr = newEnricher(a.cfg.Generation, a.logger)
			}

			stats, err := importRecords(ctx, in, a.pois, enr, batch, a.logger)
			a.logger.Info("Import finished",
				zap.Int("lines", stats.Lines),
				zap.Int("imported", stats.Imported),
				zap.Int("skipped", stats.Skipped),
				zap.Int("enrich_failed", stats.EnrichFailed),
			)
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON lines file to import (- for stdin)")
	cmd.Flags().IntVar(&batch, "batch", defaultBatchSize, "POIs per pipelined write")
	cmd.Flags().BoolVar(&enrich, "enrich", false, "Generate missing recall metadata with the configured model")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete POIs by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range args {
				if err := a.pois.Delete(cmd.Context(), id); err != nil {
					return err
				}
				a.logger.Info("POI deleted", zap.String("id", id))
			}
			return nil
		},
	}
}
