package models

import "time"

// Tags holds the embedded metadata read from a clip, when it has any.
type Tags struct {
	Title  string
	Artist string
	Album  string
	Format string
}

// Item is one accepted clip in a playlist. Fingerprint is unique within
// the playlist that holds it.
type Item struct {
	Fingerprint string    // lowercase hex SHA-1 of the clip bytes
	Name        string    // original file name
	Size        int64     // bytes
	ContentType string    // sniffed from the bytes
	Tags        *Tags     // nil when the clip carries no readable tags
	AddedAt     time.Time // when the clip was accepted
}

// DisplayName prefers the embedded title, falling back to the file name.
func (i Item) DisplayName() string {
	if i.Tags != nil && i.Tags.Title != "" {
		return i.Tags.Title
	}
	return i.Name
}

// SegmentKind tells prompt clips and user clips apart in a mix plan.
type SegmentKind int

const (
	SegmentPrompt SegmentKind = iota
	SegmentClip
)

func (k SegmentKind) String() string {
	switch k {
	case SegmentPrompt:
		return "prompt"
	case SegmentClip:
		return "clip"
	default:
		return "unknown"
	}
}

// Segment is one entry of the interleaved concatenation order.
type Segment struct {
	Kind   SegmentKind
	Prompt int  // 1-based prompt number, set for SegmentPrompt
	Item   Item // set for SegmentClip
}
