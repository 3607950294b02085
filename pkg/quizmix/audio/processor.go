package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	DefaultSampleRate = 44100
	DefaultChannels   = 2
	DefaultBitrate    = "192k"
	bitDepth          = 16
)

// Format is the container of an encoded mix.
type Format string

const (
	FormatMP3 Format = "mp3"
	FormatWAV Format = "wav"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatMP3, "":
		return FormatMP3, nil
	case FormatWAV:
		return FormatWAV, nil
	default:
		return "", fmt.Errorf("unsupported output format %q", s)
	}
}

func (f Format) ContentType() string {
	if f == FormatWAV {
		return "audio/wav"
	}
	return "audio/mpeg"
}

func (f Format) Ext() string { return "." + string(f) }

type PCMConfig struct {
	SampleRate int // e.g. 22050, 44100, 48000
	Channels   int // 1 or 2
	TempDir    string
}

func (c PCMConfig) withDefaults() PCMConfig {
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.Channels == 0 {
		c.Channels = DefaultChannels
	}
	if c.TempDir == "" {
		c.TempDir = os.TempDir()
	}
	return c
}

// Decode turns an encoded clip into interleaved 16-bit PCM at the configured
// rate and channel count. ffmpeg does the decoding and resampling; the clip is
// staged in a temp file because some containers need a seekable input.
func Decode(ctx context.Context, name string, data []byte, cfg PCMConfig) (*goaudio.IntBuffer, error) {
	cfg = cfg.withDefaults()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Minute)
		defer cancel()
	}

	inPath, cleanup, err := stage(cfg.TempDir, name, data)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	cmd := exec.CommandContext(
		ctx,
		"ffmpeg",
		"-v", "error",
		"-i", inPath,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", fmt.Sprintf("%d", cfg.SampleRate),
		"-ac", fmt.Sprintf("%d", cfg.Channels),
		"pipe:1",
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffmpeg decode %s: %v (%s)", name, err, strings.TrimSpace(stderr.String()))
	}

	return bytesToBuffer(out, cfg.SampleRate, cfg.Channels), nil
}

// Encode renders buf in the requested format and returns the encoded bytes.
func Encode(ctx context.Context, buf *goaudio.IntBuffer, format Format, bitrate, tempDir string) ([]byte, error) {
	if buf == nil || buf.Format == nil {
		return nil, errors.New("encode: empty buffer")
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if bitrate == "" {
		bitrate = DefaultBitrate
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
	}

	wavFile, err := os.CreateTemp(tempDir, "quizmix-*.wav")
	if err != nil {
		return nil, fmt.Errorf("creating temp wav: %w", err)
	}
	wavPath := wavFile.Name()
	defer os.Remove(wavPath)

	enc := wav.NewEncoder(wavFile, buf.Format.SampleRate, bitDepth, buf.Format.NumChannels, 1)
	if err := enc.Write(buf); err != nil {
		wavFile.Close()
		return nil, fmt.Errorf("writing wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		wavFile.Close()
		return nil, fmt.Errorf("finalizing wav: %w", err)
	}
	if err := wavFile.Close(); err != nil {
		return nil, err
	}

	if format == FormatWAV {
		return os.ReadFile(wavPath)
	}

	cmd := exec.CommandContext(
		ctx,
		"ffmpeg",
		"-v", "error",
		"-i", wavPath,
		"-codec:a", "libmp3lame",
		"-b:a", bitrate,
		"-f", "mp3",
		"pipe:1",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffmpeg encode mp3: %v (%s)", err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// ReadWAV decodes a 16-bit PCM WAV held in memory.
func ReadWAV(data []byte) (*goaudio.IntBuffer, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, errors.New("not a valid WAV file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading PCM: %w", err)
	}
	return buf, nil
}

func bytesToBuffer(raw []byte, sampleRate, channels int) *goaudio.IntBuffer {
	// Keep whole frames only.
	frameBytes := 2 * channels
	raw = raw[:len(raw)-len(raw)%frameBytes]

	data := make([]int, len(raw)/2)
	for i := range data {
		data[i] = int(int16(binary.LittleEndian.Uint16(raw[i*2:])))
	}
	return &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
}

// stage writes data to a temp file that keeps the original extension, which
// ffmpeg uses as a format hint.
func stage(dir, name string, data []byte) (string, func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, err
	}
	f, err := os.CreateTemp(dir, "quizmix-*"+filepath.Ext(name))
	if err != nil {
		return "", nil, fmt.Errorf("staging %s: %w", name, err)
	}
	cleanup := func() { os.Remove(f.Name()) }

	if _, err := f.Write(data); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("staging %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return f.Name(), cleanup, nil
}
