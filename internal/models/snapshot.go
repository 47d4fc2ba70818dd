package models

import "time"

// SnapshotKind tags what navigation produced a page snapshot.
type SnapshotKind string

const (
	SnapshotSearch SnapshotKind = "search"
	SnapshotDetail SnapshotKind = "detail"
	SnapshotProbe  SnapshotKind = "probe"
)

// PageSnapshot preserves what the site actually served for a navigation,
// kept so operators can inspect filtered items and low-confidence
// extractions after the fact. Markdown is a readable rendition of the HTML.
type PageSnapshot struct {
	ID         string       `json:"id" badgerhold:"key"`
	URL        string       `json:"url"`
	Kind       SnapshotKind `json:"kind"`
	ItemName   string       `json:"item_name,omitempty"`
	HTML       string       `json:"html"`
	Markdown   string       `json:"markdown,omitempty"`
	Confidence float64      `json:"confidence"`
	FetchedAt  time.Time    `json:"fetched_at" badgerholdIndex:"FetchedAt"`
}

// NewPageSnapshot builds an unsaved snapshot; the store assigns the ID and
// markdown rendition on save.
func NewPageSnapshot(url string, kind SnapshotKind, itemName, html string, confidence float64) *PageSnapshot {
	return &PageSnapshot{
		URL:        url,
		Kind:       kind,
		ItemName:   itemName,
		HTML:       html,
		Confidence: confidence,
		FetchedAt:  time.Now(),
	}
}
