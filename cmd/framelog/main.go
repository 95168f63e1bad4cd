package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/framelog/internal/channel"
	"github.com/bft-labs/framelog/internal/cliconfig"
	"github.com/bft-labs/framelog/internal/pump"
	"github.com/bft-labs/framelog/internal/region"
	"github.com/bft-labs/framelog/internal/tailer"
	logpkg "github.com/bft-labs/framelog/pkg/log"
)

const longHelp = `framelog moves a stream of binary messages through a fixed-size
memory-mapped file, between one producer and one consumer, with no
locks and no flushes on the hot path.

The file is a single-pass log of checksummed frames: "write" appends
frames read from stdin, "tail" emits them to stdout, in append order,
from this or any other process mapping the same file.`

const exampleUsage = `  framelog create --path /tmp/chan.dat --messages 1000 --message-size 1024
  producer | framelog write --path /tmp/chan.dat --capacity 1048576
  framelog tail --path /tmp/chan.dat --capacity 1048576 --follow`

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()
}

func newRootCmd() *cobra.Command {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "framelog",
		Short:         "Lock-free message transport over a memory-mapped file",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default $HOME/.framelog/config.toml)")
	root.PersistentFlags().StringVar(&cfg.Path, "path", cfg.Path, "region file backing the channel")
	root.PersistentFlags().Int64Var(&cfg.Capacity, "capacity", cfg.Capacity, "region size in bytes")
	root.PersistentFlags().IntVar(&cfg.Messages, "messages", cfg.Messages, "expected message count, used to derive capacity")
	root.PersistentFlags().IntVar(&cfg.MessageSize, "message-size", cfg.MessageSize, "expected message size, used to derive capacity")
	root.PersistentFlags().StringVar(&cfg.Checksum, "checksum", cfg.Checksum, "integrity capability: crc32, crc32c, xxhash or none")
	root.PersistentFlags().StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory for tail resume state")
	root.PersistentFlags().DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "sleep ceiling between read attempts")

	root.AddCommand(newCreateCmd(&cfg, &cfgPath))
	root.AddCommand(newWriteCmd(&cfg, &cfgPath))
	root.AddCommand(newTailCmd(&cfg, &cfgPath))
	root.AddCommand(newInspectCmd(&cfg, &cfgPath))

	return root
}

// loadConfig merges file and environment configuration under the flags
// the user set explicitly, then validates.
func loadConfig(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string) error {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	file := cfgPath
	if file == "" {
		file = cliconfig.DefaultConfigPath()
	}
	if file != "" && cliconfig.FileExists(file) {
		fc, err := cliconfig.LoadFileConfig(file)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}
	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}
	return cfg.Validate()
}

func channelOptions(cfg *cliconfig.Config) ([]channel.Option, error) {
	sum, err := cfg.Summer()
	if err != nil {
		return nil, err
	}
	return []channel.Option{channel.WithChecksum(sum)}, nil
}

func newCreateCmd(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Preallocate a region file sized for the expected workload",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, cfg, *cfgPath); err != nil {
				return err
			}
			log := newLogger()

			reg, err := region.Open(cfg.Path, cfg.Capacity)
			if err != nil {
				return err
			}
			if err := reg.Close(); err != nil {
				return err
			}
			log.Info().Str("path", cfg.Path).Int64("capacity", cfg.Capacity).Msg("region ready")
			return nil
		},
	}
}

func newWriteCmd(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "write",
		Short: "Append newline-delimited records from stdin to the channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, cfg, *cfgPath); err != nil {
				return err
			}
			logger := logpkg.NewZerologAdapterWithLogger(newLogger())

			opts, err := channelOptions(cfg)
			if err != nil {
				return err
			}
			reg, err := region.Open(cfg.Path, cfg.Capacity)
			if err != nil {
				return err
			}
			w, err := channel.NewWriter(reg, opts...)
			if err != nil {
				reg.Close()
				return err
			}
			defer w.Close()

			_, perr := pump.New(w, logger).Run(cmd.InOrStdin())

			// Frames live in the page cache until the kernel gets to
			// them; force them down before exiting.
			if err := w.Sync(); err != nil {
				return err
			}
			return perr
		},
	}
}

func newTailCmd(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Emit the channel's frames to stdout in append order",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, cfg, *cfgPath); err != nil {
				return err
			}
			logger := logpkg.NewZerologAdapterWithLogger(newLogger())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts, err := channelOptions(cfg)
			if err != nil {
				return err
			}
			reg, err := region.Open(cfg.Path, cfg.Capacity)
			if err != nil {
				return err
			}
			r, err := channel.NewReader(reg, opts...)
			if err != nil {
				reg.Close()
				return err
			}
			defer r.Close()

			tl := tailer.New(r, cmd.OutOrStdout(), logger, tailer.Config{
				PollInterval: cfg.PollInterval,
				Follow:       cfg.Follow,
				Once:         cfg.Once,
				StateDir:     cfg.StateDir,
			})

			// Reloadable settings (currently the poll interval) follow
			// edits to the config file while tail runs.
			watchPath := *cfgPath
			if watchPath == "" {
				watchPath = cliconfig.DefaultConfigPath()
			}
			if cliconfig.FileExists(watchPath) {
				go tailer.NewConfigWatcher(watchPath, tl, logger).Run(ctx)
			}

			err = tl.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&cfg.Follow, "follow", false, "keep polling past the end-of-stream marker")
	cmd.Flags().BoolVar(&cfg.Once, "once", false, "drain available frames and exit")
	return cmd
}

func newInspectCmd(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Walk the region's frames without consuming them",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, cfg, *cfgPath); err != nil {
				return err
			}

			opts, err := channelOptions(cfg)
			if err != nil {
				return err
			}
			reg, err := region.Open(cfg.Path, cfg.Capacity)
			if err != nil {
				return err
			}
			defer reg.Close()

			out := cmd.OutOrStdout()
			for _, fi := range channel.Inspect(reg, opts...) {
				switch fi.State {
				case channel.FrameValid:
					fmt.Fprintf(out, "%10d  %-13s length=%d checksum=%08x\n", fi.Offset, fi.State, fi.Length, fi.Stored)
				case channel.FrameBadSum:
					fmt.Fprintf(out, "%10d  %-13s length=%d stored=%08x want=%08x\n", fi.Offset, fi.State, fi.Length, fi.Stored, fi.Want)
				default:
					fmt.Fprintf(out, "%10d  %s\n", fi.Offset, fi.State)
				}
			}
			return nil
		},
	}
}
