package audio

import (
	"errors"
	"fmt"
	"time"

	goaudio "github.com/go-audio/audio"
)

var ErrFormatMismatch = errors.New("pcm formats differ")

// Silence returns d of zeroed samples in the given format.
func Silence(format *goaudio.Format, d time.Duration) *goaudio.IntBuffer {
	frames := framesFor(format, d)
	return &goaudio.IntBuffer{
		Format:         cloneFormat(format),
		Data:           make([]int, frames*format.NumChannels),
		SourceBitDepth: bitDepth,
	}
}

// PadAt inserts pad of silence at offset into buf. When buf is shorter than
// offset the silence is appended instead. buf is not modified.
func PadAt(buf *goaudio.IntBuffer, offset, pad time.Duration) *goaudio.IntBuffer {
	if buf == nil || buf.Format == nil {
		return buf
	}
	ch := buf.Format.NumChannels
	at := framesFor(buf.Format, offset) * ch
	if at > len(buf.Data) {
		at = len(buf.Data)
	}
	silence := framesFor(buf.Format, pad) * ch

	data := make([]int, 0, len(buf.Data)+silence)
	data = append(data, buf.Data[:at]...)
	data = append(data, make([]int, silence)...)
	data = append(data, buf.Data[at:]...)

	return &goaudio.IntBuffer{
		Format:         cloneFormat(buf.Format),
		Data:           data,
		SourceBitDepth: buf.SourceBitDepth,
	}
}

// Concat joins buffers end to end. All buffers must share sample rate and
// channel count.
func Concat(bufs ...*goaudio.IntBuffer) (*goaudio.IntBuffer, error) {
	if len(bufs) == 0 {
		return nil, errors.New("concat: no buffers")
	}
	first := bufs[0].Format
	total := 0
	for i, b := range bufs {
		if b == nil || b.Format == nil {
			return nil, fmt.Errorf("concat: buffer %d has no format", i)
		}
		if b.Format.SampleRate != first.SampleRate || b.Format.NumChannels != first.NumChannels {
			return nil, fmt.Errorf("concat: buffer %d is %dHz/%dch, want %dHz/%dch: %w",
				i, b.Format.SampleRate, b.Format.NumChannels, first.SampleRate, first.NumChannels, ErrFormatMismatch)
		}
		total += len(b.Data)
	}

	data := make([]int, 0, total)
	for _, b := range bufs {
		data = append(data, b.Data...)
	}
	return &goaudio.IntBuffer{
		Format:         cloneFormat(first),
		Data:           data,
		SourceBitDepth: bitDepth,
	}, nil
}

// Duration of buf, rounded down to whole frames.
func Duration(buf *goaudio.IntBuffer) time.Duration {
	if buf == nil || buf.Format == nil || buf.Format.SampleRate == 0 || buf.Format.NumChannels == 0 {
		return 0
	}
	frames := len(buf.Data) / buf.Format.NumChannels
	return time.Duration(frames) * time.Second / time.Duration(buf.Format.SampleRate)
}

func framesFor(format *goaudio.Format, d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(int64(d) * int64(format.SampleRate) / int64(time.Second))
}

func cloneFormat(f *goaudio.Format) *goaudio.Format {
	c := *f
	return &c
}
