package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/handiism/nizima-downloader/internal/config"
	"github.com/handiism/nizima-downloader/internal/download"
	"github.com/handiism/nizima-downloader/internal/fetch"
	"github.com/handiism/nizima-downloader/internal/model"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Download cancelled.")
			os.Exit(130)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	var (
		loggerCfg  config.Logger
		logger     *slog.Logger
		configPath string
		output     string
		items      int64
		files      int64
		force      bool
	)

	flags := append(loggerCfg.Flags(),
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to config file",
			Destination: &configPath,
			Sources:     cli.EnvVars("NIZIMA_CONFIG"),
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Output directory (overrides config)",
			Destination: &output,
			Sources:     cli.EnvVars("NIZIMA_OUTPUT"),
		},
		&cli.Int64Flag{
			Name:        "concurrent-items",
			Usage:       "How many items to download in parallel (overrides config)",
			Destination: &items,
		},
		&cli.Int64Flag{
			Name:        "concurrent-files",
			Usage:       "How many files per item to download in parallel (overrides config)",
			Destination: &files,
		},
		&cli.BoolFlag{
			Name:        "force",
			Aliases:     []string{"f"},
			Usage:       "Download items again even when they are up to date",
			Destination: &force,
		},
	)

	app := &cli.Command{
		Name:      "nizima-dl",
		Usage:     "Download Live2D items from nizima",
		ArgsUsage: "<item-id> [<item-id>...]",
		Flags:     flags,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			var err error
			logger, err = loggerCfg.Configure()
			if err != nil {
				return nil, err
			}

			slog.SetDefault(logger)
			ctx = ctxlog.With(ctx, logger)
			return ctx, nil
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			if c.Args().Len() == 0 {
				return goerr.New("no item IDs given, see --help")
			}

			ids := make([]model.ItemID, 0, c.Args().Len())
			for _, arg := range c.Args().Slice() {
				id, err := model.ParseItemID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}

			settings := config.DefaultSettings()
			if configPath != "" {
				var err error
				settings, err = config.Load(configPath)
				if err != nil {
					return goerr.Wrap(err, "failed to load config", goerr.V("path", configPath))
				}
			}
			if output != "" {
				settings.OutputRoot = output
			}
			if items > 0 {
				settings.MaxConcurrentItems = int(items)
			}
			if files > 0 {
				settings.MaxConcurrentFiles = int(files)
			}
			if force {
				settings.ForceRefresh = true
			}

			logger.Info("Starting download",
				slog.Int("items", len(ids)),
				slog.String("output", settings.OutputRoot),
			)

			fetcher := fetch.NewFetcher(settings, func(event download.ProgressEvent) {
				switch event.Level {
				case download.LevelError:
					logger.Error(event.Message)
				case download.LevelWarning:
					logger.Warn(event.Message)
				case download.LevelVerbose:
					logger.Debug(event.Message)
				default:
					logger.Info(event.Message)
				}
			})

			results := fetcher.FetchAll(ctx, ids)
			if ctx.Err() != nil {
				return context.Canceled
			}

			var completed, skipped, rolledBack, failed int
			for _, result := range results {
				switch result.Status {
				case fetch.StatusCompleted:
					completed++
				case fetch.StatusSkipped:
					skipped++
				case fetch.StatusRolledBack:
					rolledBack++
				case fetch.StatusFailed:
					failed++
				}
			}

			downloaded, failedFiles, totalFiles := fetcher.GetProgress()
			logger.Info("Download finished",
				slog.Int("completed", completed),
				slog.Int("skipped", skipped),
				slog.Int("rolled_back", rolledBack),
				slog.Int("failed", failed),
				slog.Int("files_downloaded", int(downloaded)),
				slog.Int("files_failed", int(failedFiles)),
				slog.Int("files_total", int(totalFiles)),
			)

			if rolledBack+failed > 0 {
				return goerr.New("some items did not complete",
					goerr.V("rolled_back", rolledBack), goerr.V("failed", failed))
			}
			return nil
		},
	}

	if err := app.Run(ctx, args); err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		if !errors.Is(err, context.Canceled) {
			logger.Error("Download failed", slog.Any("error", err))
		}
		return err
	}

	return nil
}
