package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"jamesfarrell.me/video-library/internal/app"
	"jamesfarrell.me/video-library/internal/config"
	"jamesfarrell.me/video-library/internal/logging"
	"jamesfarrell.me/video-library/internal/search"
	"jamesfarrell.me/video-library/internal/storage/models"
	"jamesfarrell.me/video-library/internal/ui"
)

type cli struct {
	cfgFile  string
	dataDir  string
	logLevel string

	app *app.App
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "library",
		Short: "Personal video library with transcript search",
		Long: `library downloads videos, transcribes them with Whisper and lets you
search every transcript for moments about a topic.

COMMON WORKFLOWS:
  Add a video:      library add https://youtu.be/... my-talk
  Find a moment:    library search "error handling"
  Jump to it:       library play my-talk 754
  Interactive use:  library shell`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.app == nil {
				return nil
			}
			return c.app.Close()
		},
	}

	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&c.dataDir, "data-dir", "", "library data directory (overrides config)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		c.addCmd(),
		c.listCmd(),
		c.searchCmd(),
		c.transcriptCmd(),
		c.playCmd(),
		c.shellCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(c.cfgFile)
	if err != nil {
		return err
	}
	if c.dataDir != "" {
		cfg.DataDir = c.dataDir
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}

	logger := logging.New(logging.Config{
		Level:   cfg.LogLevel,
		JSON:    cfg.JSONLogs(),
		Service: "library",
		Output:  cmd.ErrOrStderr(),
	})

	a, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	c.app = a
	return nil
}

func (c *cli) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <url> <name>",
		Short: "Download, transcribe and store a video",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args[1:], " ")
			res, err := c.app.Library.AddVideo(cmd.Context(), args[0], name)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✅ Downloaded! Audio: %.1f MB\n", res.AudioSizeMB)
			fmt.Fprintf(out, "✅ Added %s (%d segments)\n", res.Name, res.Segments)
			return nil
		},
	}
}

func (c *cli) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the videos in the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			videos, err := c.app.Library.ListVideos()
			if err != nil {
				return err
			}
			ui.RenderVideos(cmd.OutOrStdout(), videos)
			return nil
		},
	}
}

func (c *cli) searchCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find moments about a topic across all transcripts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			videos, err := c.app.Library.ListVideos()
			if err != nil {
				return err
			}
			if len(videos) == 0 {
				fmt.Fprintln(out, "⚠ No videos in library yet!")
				return nil
			}

			results, err := c.app.Library.Search(cmd.Context(), strings.Join(args, " "))
			if errors.Is(err, search.ErrEmptyQuery) {
				return errors.New("please enter a search query")
			}
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(out, models.SearchResponse{Results: results})
			}
			ui.RenderResults(out, results)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}

func (c *cli) transcriptCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "transcript <name>",
		Short: "Print a stored transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, found, err := c.app.Library.Transcript(args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no transcript for %q", args[0])
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, t)
			}
			ui.RenderTranscript(out, args[0], t)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the transcript as JSON")
	return cmd
}

func (c *cli) playCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "play <name> [seconds]",
		Short: "Play a video from an offset",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ts float64
			if len(args) == 2 {
				v, err := strconv.ParseFloat(args[1], 64)
				if err != nil {
					return fmt.Errorf("invalid offset %q: %w", args[1], err)
				}
				ts = v
			}

			pb, err := c.app.Library.Playback(args[0], ts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "▶ %s from %s\n", pb.Video, models.FormatTimestamp(float64(pb.StartSeconds)))
			if c.app.Config.Player == "" {
				fmt.Fprintf(out, "   file: %s (start at %ds)\n", pb.Path, pb.StartSeconds)
				return nil
			}
			return ui.NewCommandPlayer(c.app.Config.Player).Open(pb)
		},
	}
}

func (c *cli) shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start the interactive shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ui.Config{Out: cmd.OutOrStdout()}
			if c.app.Config.Player != "" {
				cfg.Player = ui.NewCommandPlayer(c.app.Config.Player)
			}
			return ui.NewShell(c.app.Library, cfg).Run(cmd.Context(), os.Stdin)
		},
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
