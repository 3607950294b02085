package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

var ErrNoAudioStream = errors.New("no audio stream found")

type Metadata struct {
	Filename    string
	Title       string
	Artist      string
	Album       string
	DurationSec float64
	SampleRate  int
	Channels    int
	Codec       string
	Format      string
}

type ffprobeOutput struct {
	Format struct {
		Filename string            `json:"filename"`
		Duration string            `json:"duration"`
		Format   string            `json:"format_name"`
		Tags     map[string]string `json:"tags"`
	} `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeStream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Duration   string `json:"duration"`
}

func (p *ffprobeOutput) firstAudioStream() *ffprobeStream {
	for i := range p.Streams {
		if p.Streams[i].CodecType == "audio" {
			return &p.Streams[i]
		}
	}
	return nil
}

// ReadMetadata probes the file at path with ffprobe.
func ReadMetadata(ctx context.Context, path string) (*Metadata, error) {
	meta, err := probe(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	meta.Filename = filepath.Base(path)
	return meta, nil
}

// ProbeBytes probes an in-memory payload by piping it to ffprobe. A payload
// ffprobe accepts with an audio stream is considered playable.
func ProbeBytes(ctx context.Context, name string, data []byte) (*Metadata, error) {
	meta, err := probe(ctx, "pipe:0", data)
	if err != nil {
		return nil, err
	}
	meta.Filename = name
	return meta, nil
}

func probe(ctx context.Context, input string, stdin []byte) (*Metadata, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	cmd := exec.CommandContext(
		ctx,
		"ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		input,
	)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return parseProbe(out)
}

func parseProbe(out []byte) (*Metadata, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, err
	}

	stream := probe.firstAudioStream()
	if stream == nil {
		return nil, ErrNoAudioStream
	}

	duration, _ := strconv.ParseFloat(probe.Format.Duration, 64)
	if duration == 0 {
		// Piped input often carries the duration on the stream only.
		duration, _ = strconv.ParseFloat(stream.Duration, 64)
	}
	sampleRate, _ := strconv.Atoi(stream.SampleRate)

	meta := &Metadata{
		DurationSec: duration,
		SampleRate:  sampleRate,
		Channels:    stream.Channels,
		Codec:       stream.CodecName,
		Format:      probe.Format.Format,
	}
	if probe.Format.Tags != nil {
		meta.Title = probe.Format.Tags["title"]
		meta.Artist = probe.Format.Tags["artist"]
		meta.Album = probe.Format.Tags["album"]
	}
	return meta, nil
}

// Duration returns the probed length as a time.Duration.
func (m *Metadata) Duration() time.Duration {
	return time.Duration(m.DurationSec * float64(time.Second))
}
