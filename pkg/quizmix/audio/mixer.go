package audio

import (
	"context"
	"errors"
	"fmt"
	"time"

	goaudio "github.com/go-audio/audio"
	"golang.org/x/sync/errgroup"
)

// Input is one encoded segment of a mix.
type Input struct {
	Name string
	Data []byte
}

// Output is an encoded mix.
type Output struct {
	Data        []byte
	Format      Format
	ContentType string
	Duration    time.Duration
}

type MixerConfig struct {
	PCM         PCMConfig
	PadOffset   time.Duration
	PadDuration time.Duration
	Format      Format
	Bitrate     string
	Concurrency int
}

func DefaultMixerConfig() MixerConfig {
	return MixerConfig{
		PCM:         PCMConfig{SampleRate: DefaultSampleRate, Channels: DefaultChannels},
		PadOffset:   time.Second,
		PadDuration: time.Second,
		Format:      FormatMP3,
		Bitrate:     DefaultBitrate,
		Concurrency: 4,
	}
}

// Mixer decodes segments to a common PCM format, pads each one, joins them in
// order and encodes the result.
type Mixer struct {
	cfg    MixerConfig
	decode func(ctx context.Context, name string, data []byte, cfg PCMConfig) (*goaudio.IntBuffer, error)
	encode func(ctx context.Context, buf *goaudio.IntBuffer, format Format, bitrate, tempDir string) ([]byte, error)
}

func NewMixer(cfg MixerConfig) *Mixer {
	if cfg.Format == "" {
		cfg.Format = FormatMP3
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	cfg.PCM = cfg.PCM.withDefaults()
	return &Mixer{cfg: cfg, decode: Decode, encode: Encode}
}

func (m *Mixer) Format() Format { return m.cfg.Format }

func (m *Mixer) Mix(ctx context.Context, inputs []Input) (*Output, error) {
	if len(inputs) == 0 {
		return nil, errors.New("mix: no inputs")
	}

	decoded := make([]*goaudio.IntBuffer, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Concurrency)
	for i, in := range inputs {
		g.Go(func() error {
			buf, err := m.decode(gctx, in.Name, in.Data, m.cfg.PCM)
			if err != nil {
				return fmt.Errorf("decoding %s: %w", in.Name, err)
			}
			decoded[i] = PadAt(buf, m.cfg.PadOffset, m.cfg.PadDuration)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	joined, err := Concat(decoded...)
	if err != nil {
		return nil, err
	}

	data, err := m.encode(ctx, joined, m.cfg.Format, m.cfg.Bitrate, m.cfg.PCM.TempDir)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", m.cfg.Format, err)
	}

	return &Output{
		Data:        data,
		Format:      m.cfg.Format,
		ContentType: m.cfg.Format.ContentType(),
		Duration:    Duration(joined),
	}, nil
}
