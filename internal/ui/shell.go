// Package ui is the interactive terminal front end of the library. The shell
// owns a Session holding what the user has seen and is watching; nothing
// else keeps presentation state.
package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"

	"jamesfarrell.me/video-library/internal/acquisition"
	"jamesfarrell.me/video-library/internal/library"
	"jamesfarrell.me/video-library/internal/search"
	"jamesfarrell.me/video-library/internal/storage/models"
)

// Library is the subset of library.Service the shell drives.
type Library interface {
	AddVideo(ctx context.Context, url, name string) (*library.AddResult, error)
	ListVideos() ([]string, error)
	Transcript(name string) (*models.Transcript, bool, error)
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
	Playback(name string, timestamp float64) (*models.Playback, error)
}

// Session is the shell's view state.
type Session struct {
	Videos  []string
	Results []models.SearchResult
	Current *models.Playback
}

type Config struct {
	Out    io.Writer
	Player Player
	// ReadClipboard supplies the URL for "add <name>"; defaults to the system clipboard.
	ReadClipboard func() (string, error)
	NoSpinner     bool
}

type Shell struct {
	lib           Library
	out           io.Writer
	player        Player
	readClipboard func() (string, error)
	spinner       bool

	Session Session
}

func NewShell(lib Library, cfg Config) *Shell {
	if cfg.Player == nil {
		cfg.Player = printPlayer{out: cfg.Out}
	}
	if cfg.ReadClipboard == nil {
		cfg.ReadClipboard = clipboard.ReadAll
	}
	return &Shell{
		lib:           lib,
		out:           cfg.Out,
		player:        cfg.Player,
		readClipboard: cfg.ReadClipboard,
		spinner:       !cfg.NoSpinner,
	}
}

var errQuit = errors.New("quit")

// Run reads commands from in until quit, EOF or ctx is done. Operation
// errors are printed and the loop continues.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	defer s.player.Close()

	fmt.Fprintln(s.out, "🎬 Video library. Type 'help' for commands.")
	if err := s.refreshVideos(); err != nil {
		s.printError(err)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.Exec(ctx, scanner.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			s.printError(err)
		}
	}
}

// Exec runs a single command line.
func (s *Shell) Exec(ctx context.Context, line string) error {
	cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(cmd) {
	case "":
		return nil
	case "add":
		return s.add(ctx, rest)
	case "list", "ls":
		return s.list()
	case "search", "s":
		return s.search(ctx, rest)
	case "play", "p":
		return s.play(rest)
	case "close":
		return s.closePlayer()
	case "transcript", "t":
		return s.transcript(rest)
	case "help", "?":
		fmt.Fprintln(s.out, helpText)
		return nil
	case "quit", "exit", "q":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q, type 'help' for commands", cmd)
	}
}

func (s *Shell) add(ctx context.Context, args string) error {
	url, name, _ := strings.Cut(args, " ")
	if !acquisition.IsSupportedURL(url) {
		clip, err := s.readClipboard()
		if err != nil || !acquisition.IsSupportedURL(clip) {
			return errors.New("usage: add <url> <name> (or copy a URL and use add <name>)")
		}
		url, name = strings.TrimSpace(clip), args
		fmt.Fprintf(s.out, "Using URL from clipboard: %s\n", url)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("usage: add <url> <name>")
	}

	var res *library.AddResult
	err := s.busy("Downloading and transcribing...", func() error {
		var err error
		res, err = s.lib.AddVideo(ctx, url, name)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(s.out, "✅ Downloaded! Audio: %.1f MB\n", res.AudioSizeMB)
	fmt.Fprintf(s.out, "✅ Added %s (%d segments)\n", res.Name, res.Segments)
	return s.refreshVideos()
}

func (s *Shell) list() error {
	if err := s.refreshVideos(); err != nil {
		return err
	}
	RenderVideos(s.out, s.Session.Videos)
	return nil
}

func (s *Shell) search(ctx context.Context, query string) error {
	if strings.TrimSpace(query) == "" {
		fmt.Fprintln(s.out, "⚠ Please enter a search query")
		return nil
	}
	if err := s.refreshVideos(); err != nil {
		return err
	}
	if len(s.Session.Videos) == 0 {
		fmt.Fprintln(s.out, "⚠ No videos in library yet!")
		return nil
	}

	var results []models.SearchResult
	err := s.busy("Searching...", func() error {
		var err error
		results, err = s.lib.Search(ctx, query)
		return err
	})
	if errors.Is(err, search.ErrEmptyQuery) {
		fmt.Fprintln(s.out, "⚠ Please enter a search query")
		return nil
	}
	if err != nil {
		return err
	}

	s.Session.Results = results
	RenderResults(s.out, results)
	if len(numberMatches(results)) > 0 {
		fmt.Fprintln(s.out, "Use 'play <number>' to jump to a moment.")
	}
	return nil
}

// play accepts a result number from the last search, or a video name with an
// optional start offset in seconds. The whole argument is tried as a name
// before a trailing number is read as an offset, so "play Lecture 2" plays
// the video "Lecture 2" when it exists.
func (s *Shell) play(args string) error {
	if args == "" {
		return errors.New("usage: play <number> | play <name> [seconds]")
	}

	if n, err := strconv.Atoi(args); err == nil {
		matches := numberMatches(s.Session.Results)
		if n >= 1 && n <= len(matches) {
			return s.playAt(matches[n-1].Video, matches[n-1].Match.Timestamp)
		}
		err := s.playAt(args, 0)
		if errors.Is(err, library.ErrVideoFileNotFound) {
			return fmt.Errorf("no result #%d from the last search (%d playable)", n, len(matches))
		}
		return err
	}

	err := s.playAt(args, 0)
	if !errors.Is(err, library.ErrVideoFileNotFound) {
		return err
	}
	if i := strings.LastIndex(args, " "); i > 0 {
		if secs, perr := strconv.ParseFloat(args[i+1:], 64); perr == nil {
			return s.playAt(strings.TrimSpace(args[:i]), secs)
		}
	}
	return err
}

func (s *Shell) playAt(video string, ts float64) error {
	pb, err := s.lib.Playback(video, ts)
	if err != nil {
		return err
	}
	if err := s.player.Open(pb); err != nil {
		return err
	}
	s.Session.Current = pb
	fmt.Fprintf(s.out, "▶ Playing %s from %s\n", pb.Video, models.FormatTimestamp(float64(pb.StartSeconds)))
	return nil
}

func (s *Shell) closePlayer() error {
	if s.Session.Current == nil {
		fmt.Fprintln(s.out, "Nothing is playing")
		return nil
	}
	if err := s.player.Close(); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "⏹ Closed %s\n", s.Session.Current.Video)
	s.Session.Current = nil
	return nil
}

func (s *Shell) transcript(name string) error {
	if name == "" {
		return errors.New("usage: transcript <name>")
	}
	t, found, err := s.lib.Transcript(name)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no transcript for %q", name)
	}
	RenderTranscript(s.out, name, t)
	return nil
}

func (s *Shell) refreshVideos() error {
	videos, err := s.lib.ListVideos()
	if err != nil {
		return err
	}
	s.Session.Videos = videos
	return nil
}

func (s *Shell) busy(description string, fn func() error) error {
	if !s.spinner {
		return fn()
	}
	return withSpinner(s.out, description, fn)
}

func (s *Shell) printError(err error) {
	var tooLarge *acquisition.TooLargeError
	switch {
	case errors.As(err, &tooLarge):
		fmt.Fprintf(s.out, "❌ %s\n", tooLarge.Error())
		return
	case errors.Is(err, library.ErrVideoFileNotFound):
		fmt.Fprintln(s.out, "❌ Video file not found")
		return
	}
	fmt.Fprintf(s.out, "❌ %s\n", err)
}
