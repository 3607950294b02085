// Package playlist holds the ordered, deduplicated collection of clips that
// make up a quiz track. A Playlist is not safe for concurrent use; callers
// serialize access.
package playlist

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/himanishpuri/QuizMix/pkg/models"
)

// Outcome of submitting an item.
type Outcome int

const (
	Accepted Outcome = iota
	Duplicate
)

func (o Outcome) String() string {
	if o == Duplicate {
		return "duplicate"
	}
	return "accepted"
}

type Playlist struct {
	items []models.Item
	seen  map[string]struct{}
}

func New() *Playlist {
	return &Playlist{seen: make(map[string]struct{})}
}

// Submit appends item unless an item with the same fingerprint is already
// present, in which case the playlist is left untouched.
func (p *Playlist) Submit(item models.Item) Outcome {
	if _, ok := p.seen[item.Fingerprint]; ok {
		return Duplicate
	}
	p.seen[item.Fingerprint] = struct{}{}
	p.items = append(p.items, item)
	return Accepted
}

// Reorder moves the item at from to position to, shifting the items in
// between. Both indices are clamped to the valid range, matching the
// drag-and-drop helper the UI relies on. Returns the clamped pair.
func (p *Playlist) Reorder(from, to int) (int, int) {
	if len(p.items) == 0 {
		return 0, 0
	}
	from = clamp(from, len(p.items)-1)
	to = clamp(to, len(p.items)-1)
	if from == to {
		return from, to
	}

	item := p.items[from]
	p.items = slices.Delete(p.items, from, from+1)
	p.items = slices.Insert(p.items, to, item)
	return from, to
}

// SortByName orders items by file name using the collation rules of tag.
// The sort is stable, so calling it twice changes nothing.
func (p *Playlist) SortByName(tag language.Tag) {
	col := collate.New(tag)
	slices.SortStableFunc(p.items, func(a, b models.Item) int {
		if c := col.CompareString(a.Name, b.Name); c != 0 {
			return c
		}
		// Collation-equal names keep a deterministic order.
		return strings.Compare(a.Name, b.Name)
	})
}

func (p *Playlist) Clear() {
	p.items = nil
	clear(p.seen)
}

// Items returns a copy of the current order.
func (p *Playlist) Items() []models.Item {
	return slices.Clone(p.items)
}

func (p *Playlist) Len() int { return len(p.items) }

func (p *Playlist) Empty() bool { return len(p.items) == 0 }

func (p *Playlist) Find(fingerprint string) (models.Item, bool) {
	if _, ok := p.seen[fingerprint]; !ok {
		return models.Item{}, false
	}
	for _, it := range p.items {
		if it.Fingerprint == fingerprint {
			return it, true
		}
	}
	return models.Item{}, false
}

// Plan returns the concatenation order: prompt 1, item 1, prompt 2, item 2...
func (p *Playlist) Plan() []models.Segment {
	return Interleave(p.items)
}

// Interleave places a numbered prompt before each item.
func Interleave(items []models.Item) []models.Segment {
	plan := make([]models.Segment, 0, 2*len(items))
	for i, it := range items {
		plan = append(plan,
			models.Segment{Kind: models.SegmentPrompt, Prompt: i + 1},
			models.Segment{Kind: models.SegmentClip, Item: it},
		)
	}
	return plan
}

func clamp(i, hi int) int {
	if i < 0 {
		return 0
	}
	if i > hi {
		return hi
	}
	return i
}
