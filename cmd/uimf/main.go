package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/uimfdata/uimf"
	"github.com/uimfdata/uimf/bincentric"
)

func main() {
	var verbose bool
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()

	root := &cobra.Command{
		Use:           "uimf",
		Short:         "Inspect and maintain UIMF ion-mobility data files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			level := zerolog.InfoLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			logger = logger.Level(level)
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(infoCmd(&logger))
	root.AddCommand(indexCmd(&logger))
	root.AddCommand(reencodeCmd(&logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func infoCmd(logger *zerolog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Print a file's global parameters and per-frame summaries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := uimf.Open(args[0], uimf.WithLogger(*logger))
			if err != nil {
				return err
			}
			defer f.Close()

			g := f.Globals()
			fmt.Printf("File:            %s\n", args[0])
			fmt.Printf("Frames:          %d\n", g.NumFrames)
			fmt.Printf("Bins:            %d\n", g.Bins)
			fmt.Printf("Bin width:       %g ns\n", g.BinWidth)
			fmt.Printf("Intensity type:  %s\n", g.TOFIntensityType)
			if !g.DateStarted.IsZero() {
				fmt.Printf("Date started:    %s\n", g.DateStarted.Format(time.RFC3339))
			}

			built, err := f.HasBinCentricIndex(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Bin-centric:     %v\n", built)

			return nil
		},
	}
}

func indexCmd(logger *zerolog.Logger) *cobra.Command {
	var memoryLimitMB int64
	var spillDir string

	cmd := &cobra.Command{
		Use:   "index <file>",
		Short: "Build (or rebuild) the bin-centric index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := uimf.Open(args[0], uimf.WithLogger(*logger))
			if err != nil {
				return err
			}
			defer f.Close()

			opts := []bincentric.Option{
				bincentric.WithProgress(func(percent int, message string) {
					logger.Info().Int("percent", percent).Msg(message)
				}),
			}
			if memoryLimitMB > 0 {
				opts = append(opts, bincentric.WithMemoryLimit(memoryLimitMB<<20))
			}
			if spillDir != "" {
				opts = append(opts, bincentric.WithSpillDir(spillDir))
			}

			start := time.Now()
			if err := f.BuildBinCentricIndex(cmd.Context(), opts...); err != nil {
				return err
			}
			logger.Info().Dur("elapsed", time.Since(start)).Msg("index built")

			return nil
		},
	}
	cmd.Flags().Int64Var(&memoryLimitMB, "memory-limit", 0, "grouping memory budget in MiB before spilling (0 = default)")
	cmd.Flags().StringVar(&spillDir, "spill-dir", "", "directory for spill runs (default: system temp)")

	return cmd
}

func reencodeCmd(logger *zerolog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "reencode <file>",
		Short: "Rewrite legacy-compressed scan blobs into the current encoding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := uimf.Open(args[0], uimf.WithLogger(*logger))
			if err != nil {
				return err
			}
			defer f.Close()

			changed, err := f.ReencodeScans(cmd.Context())
			if err != nil {
				return err
			}
			logger.Info().Int("rewritten", changed).Msg("reencode complete")

			return nil
		},
	}
}
