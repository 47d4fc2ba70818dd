package models

import "time"

// ProgressStage identifies where in the resolve pipeline an event occurred.
type ProgressStage string

const (
	StageAuthenticating ProgressStage = "authenticating"
	StageSearching      ProgressStage = "searching"
	StageFetchingDetail ProgressStage = "fetching_detail"
	StageFiltered       ProgressStage = "filtered"
	StageResolved       ProgressStage = "resolved"
	StageCancelled      ProgressStage = "cancelled"
	StageFailed         ProgressStage = "failed"
)

// ProgressEvent is published on the caller-supplied channel while a resolve
// or batch run executes. Publishing never blocks the pipeline: if the
// consumer falls behind, events are dropped.
type ProgressEvent struct {
	ID        string        `json:"id"`
	Stage     ProgressStage `json:"stage"`
	ItemName  string        `json:"item_name,omitempty"`
	Realm     RealmTag      `json:"realm,omitempty"`
	Current   int           `json:"current,omitempty"`
	Total     int           `json:"total,omitempty"`
	Message   string        `json:"message,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}
