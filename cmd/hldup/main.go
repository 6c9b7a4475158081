package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hldup/hldup/internal/config"
	"github.com/hldup/hldup/internal/engine"
	"github.com/hldup/hldup/internal/event"
	"github.com/hldup/hldup/internal/link"
	"github.com/hldup/hldup/internal/logging"
	"github.com/hldup/hldup/internal/policy"
	"github.com/hldup/hldup/internal/stats"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	logging.Setup()
	log := logging.GetLogger("cli")

	var (
		alwaysYes   bool
		alwaysNo    bool
		prompt      bool
		dryRun      bool
		workers     int
		minSizeStr  string
		showVersion bool
	)

	rootCmd := &cobra.Command{
		Use:   "hldup [flags] [dir]...",
		Short: "Find duplicate files and consolidate them into hardlinks",
		Long: `hldup walks the given directories (default: the current directory),
finds regular files with byte-identical content and replaces the
duplicates with hardlinks to a single canonical copy, reclaiming
storage without changing any visible content or path.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintf(os.Stdout, "hldup %s\n", version)
				return nil
			}

			roots := args
			if len(roots) == 0 {
				cwd, err := os.Getwd()
				if err != nil {
					return fmt.Errorf("getwd: %w", err)
				}
				roots = []string{cwd}
			}

			// Config file supplies defaults for flags not set on the CLI.
			cfg, err := config.Load()
			if err != nil {
				log.Warn().Err(err).Msg("failed to load config")
			}
			if !cmd.Flags().Changed("workers") && cfg.Defaults.Workers != nil {
				workers = *cfg.Defaults.Workers
			}
			if !cmd.Flags().Changed("min-size") && cfg.Defaults.MinSize != nil {
				minSizeStr = *cfg.Defaults.MinSize
			}
			policyChanged := cmd.Flags().Changed("yes") ||
				cmd.Flags().Changed("no") || cmd.Flags().Changed("prompt")
			if !policyChanged && cfg.Defaults.Policy != nil {
				switch *cfg.Defaults.Policy {
				case "yes":
					alwaysYes = true
				case "no":
					alwaysNo = true
				case "prompt":
					prompt = true
				default:
					log.Warn().Str("policy", *cfg.Defaults.Policy).
						Msg("unknown policy in config, ignoring")
				}
			}

			var minSize int64
			if minSizeStr != "" {
				minSize, err = config.ParseSize(minSizeStr)
				if err != nil {
					return fmt.Errorf("invalid --min-size: %w", err)
				}
			}

			if workers <= 0 {
				workers = min(runtime.NumCPU()*2, 32)
			}

			var decider policy.Decider
			switch {
			case alwaysNo || dryRun:
				decider = policy.RejectAll{}
			case alwaysYes:
				decider = policy.AcceptAll{}
			default:
				if !policy.StdinIsTerminal() {
					log.Warn().Msg("interactive mode without a terminal; responses read from stdin")
				}
				decider = policy.NewInteractive(os.Stdin, os.Stdout)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			defer link.CleanupTmpLinks()

			// Tee engine events into the structured log stream.
			events := make(chan event.Event, 256)
			var teeWg sync.WaitGroup
			teeWg.Add(1)
			go func() {
				defer teeWg.Done()
				evLog := logging.GetLogger("event")
				for ev := range events {
					rec := evLog.Debug().Stringer("type", ev.Type)
					if ev.Path != "" {
						rec = rec.Str("path", ev.Path)
					}
					if ev.Canonical != "" {
						rec = rec.Str("canonical", ev.Canonical)
					}
					if ev.Error != nil {
						rec = rec.AnErr("cause", ev.Error)
					}
					rec.Int64("size", ev.Size).Msg("event")
				}
			}()

			collector := stats.NewCollector()
			log.Debug().
				Strs("roots", roots).
				Int("workers", workers).
				Int64("min_size", minSize).
				Msg("starting run")

			result := engine.Run(ctx, engine.Config{
				Roots:   roots,
				Workers: workers,
				MinSize: minSize,
				Decider: decider,
				Stats:   collector,
				Events:  events,
			})
			close(events)
			teeWg.Wait()

			if result.Err != nil {
				return result.Err
			}
			fmt.Fprintln(os.Stderr, result.Stats.Summary())
			return nil
		},
	}

	rootCmd.Flags().BoolVar(&showVersion, "version", false, "print version and exit")
	rootCmd.Flags().BoolVarP(&alwaysYes, "yes", "y", false, "link every duplicate group without asking")
	rootCmd.Flags().BoolVarP(&alwaysNo, "no", "n", false, "never link, only report duplicate groups")
	rootCmd.Flags().BoolVarP(&prompt, "prompt", "p", false, "ask per duplicate group (default)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "alias for --no")
	rootCmd.Flags().IntVarP(&workers, "workers", "w", 0, "hash workers (default: min(NumCPU*2, 32))")
	rootCmd.Flags().StringVar(&minSizeStr, "min-size", "", "skip files smaller than SIZE (e.g. 4K, 1M)")
	rootCmd.MarkFlagsMutuallyExclusive("yes", "no", "prompt")

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("fatal")
		return 2
	}
	return 0
}
