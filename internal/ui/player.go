package ui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"jamesfarrell.me/video-library/internal/storage/models"
)

// Player shows a video starting at a given offset.
type Player interface {
	Open(pb *models.Playback) error
	Close() error
}

// CommandPlayer launches an mpv-compatible player in the background.
// Opening a new video stops the previous one.
type CommandPlayer struct {
	Path string

	mu  sync.Mutex
	cmd *exec.Cmd
}

func NewCommandPlayer(path string) *CommandPlayer {
	return &CommandPlayer{Path: path}
}

func (p *CommandPlayer) Open(pb *models.Playback) error {
	if err := p.Close(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	cmd := exec.Command(p.Path, fmt.Sprintf("--start=%d", pb.StartSeconds), pb.Path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("error starting player: %w", err)
	}
	go cmd.Wait()
	p.cmd = cmd
	return nil
}

func (p *CommandPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd == nil {
		return nil
	}
	err := p.cmd.Process.Kill()
	p.cmd = nil
	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("error stopping player: %w", err)
	}
	return nil
}

// printPlayer is used when no player binary is configured.
type printPlayer struct {
	out io.Writer
}

func (p printPlayer) Open(pb *models.Playback) error {
	fmt.Fprintf(p.out, "   file: %s (start at %ds)\n", pb.Path, pb.StartSeconds)
	return nil
}

func (printPlayer) Close() error {
	return nil
}
