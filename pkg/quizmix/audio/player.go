package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Player plays clips through ffplay without opening a window.
type Player struct {
	Binary string
}

func NewPlayer() *Player {
	return &Player{Binary: "ffplay"}
}

// Play blocks until the clip finished or ctx is canceled. Playback starts
// only once ffprobe accepted the payload, so a clip that cannot be decoded
// fails fast instead of producing silence.
func (p *Player) Play(ctx context.Context, name string, data []byte) (*Metadata, error) {
	meta, err := ProbeBytes(ctx, name, data)
	if err != nil {
		return nil, fmt.Errorf("%s is not playable: %w", name, err)
	}

	bin := p.Binary
	if bin == "" {
		bin = "ffplay"
	}
	cmd := exec.CommandContext(ctx, bin,
		"-nodisp",
		"-autoexit",
		"-loglevel", "error",
		"-i", "pipe:0",
	)
	cmd.Stdin = bytes.NewReader(data)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return meta, ctx.Err()
		}
		return meta, fmt.Errorf("ffplay %s: %v (%s)", name, err, strings.TrimSpace(stderr.String()))
	}
	return meta, nil
}

// Available reports whether the named binaries are on PATH.
func Available(bins ...string) bool {
	for _, b := range bins {
		if _, err := exec.LookPath(b); err != nil {
			return false
		}
	}
	return true
}
