// Package ingest reads a batch of clips, fingerprints each one and emits the
// results as they complete. Files are independent: one failing file never
// stops the others.
package ingest

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dhowden/tag"
	"golang.org/x/sync/errgroup"

	"github.com/himanishpuri/QuizMix/pkg/models"
)

// ErrTooLarge is reported for a file that exceeds the configured byte limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// Payload is the original clip: its name and full content.
type Payload struct {
	Name        string
	Data        []byte
	ContentType string
}

// Record pairs a content fingerprint with the clip it was computed from.
type Record struct {
	Fingerprint string
	Payload     Payload
	Tags        *models.Tags
}

// Item converts the record into a playlist item.
func (r Record) Item() models.Item {
	return models.Item{
		Fingerprint: r.Fingerprint,
		Name:        r.Payload.Name,
		Size:        int64(len(r.Payload.Data)),
		ContentType: r.Payload.ContentType,
		Tags:        r.Tags,
	}
}

// Result is the outcome of one file's pipeline branch. Exactly one of
// Record and Err is meaningful.
type Result struct {
	Index  int // position of the file in the submitted batch
	Name   string
	Record Record
	Err    error
}

func (r Result) OK() bool { return r.Err == nil }

type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
}

type Options struct {
	Concurrency int
	MaxBytes    int64 // 0 means unlimited
	ReadTags    bool
	Logger      Logger
}

type Option func(*Options)

func WithConcurrency(n int) Option {
	return func(o *Options) {
		o.Concurrency = n
	}
}

func WithMaxBytes(n int64) Option {
	return func(o *Options) {
		o.MaxBytes = n
	}
}

func WithTags(enabled bool) Option {
	return func(o *Options) {
		o.ReadTags = enabled
	}
}

func WithLogger(log Logger) Option {
	return func(o *Options) {
		o.Logger = log
	}
}

type Pipeline struct {
	opts Options
}

func New(opts ...Option) *Pipeline {
	o := Options{Concurrency: 4, ReadTags: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	return &Pipeline{opts: o}
}

// Fingerprint returns the lowercase hex SHA-1 digest of data.
func Fingerprint(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// Run starts one branch per file and returns a channel that yields a Result
// for every file in completion order, then closes. The channel is buffered
// for the whole batch, so an abandoned reader never blocks a branch.
func (p *Pipeline) Run(ctx context.Context, files []File) <-chan Result {
	out := make(chan Result, len(files))

	go func() {
		defer close(out)

		var g errgroup.Group
		g.SetLimit(p.opts.Concurrency)
		for i, f := range files {
			g.Go(func() error {
				out <- p.process(ctx, i, f)
				return nil
			})
		}
		_ = g.Wait()
	}()

	return out
}

// Collect runs the batch and waits for every result.
func (p *Pipeline) Collect(ctx context.Context, files []File) []Result {
	results := make([]Result, 0, len(files))
	for r := range p.Run(ctx, files) {
		results = append(results, r)
	}
	return results
}

func (p *Pipeline) process(ctx context.Context, idx int, f File) Result {
	res := Result{Index: idx, Name: f.Name()}

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	data, err := p.read(f)
	if err != nil {
		res.Err = fmt.Errorf("reading %s: %w", f.Name(), err)
		p.warnf("Dropping %s: %v", f.Name(), err)
		return res
	}

	res.Record = Record{
		Fingerprint: Fingerprint(data),
		Payload: Payload{
			Name:        f.Name(),
			Data:        data,
			ContentType: http.DetectContentType(data),
		},
	}
	if p.opts.ReadTags {
		res.Record.Tags = readTags(data)
	}

	p.debugf("Fingerprinted %s (%d bytes) -> %s", f.Name(), len(data), res.Record.Fingerprint)
	return res
}

func (p *Pipeline) read(f File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if p.opts.MaxBytes > 0 {
		r = io.LimitReader(rc, p.opts.MaxBytes+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if p.opts.MaxBytes > 0 && int64(len(data)) > p.opts.MaxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

// readTags is best effort: clips without tags (or in a format the tag
// reader does not know) simply get none.
func readTags(data []byte) *models.Tags {
	meta, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	t := &models.Tags{
		Title:  strings.TrimSpace(meta.Title()),
		Artist: strings.TrimSpace(meta.Artist()),
		Album:  strings.TrimSpace(meta.Album()),
		Format: string(meta.FileType()),
	}
	if t.Title == "" && t.Artist == "" && t.Album == "" {
		return nil
	}
	return t
}

func (p *Pipeline) debugf(format string, args ...any) {
	if p.opts.Logger != nil {
		p.opts.Logger.Debugf(format, args...)
	}
}

func (p *Pipeline) warnf(format string, args ...any) {
	if p.opts.Logger != nil {
		p.opts.Logger.Warnf(format, args...)
	}
}
