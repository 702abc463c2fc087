package internal

import "time"

type SourceKind string

const (
	SourceDescriptions SourceKind = "descriptions"
	SourceTags         SourceKind = "tags"
	SourceTemplate     SourceKind = "template"
	SourceImages       SourceKind = "images"
)

// Priority orders merge passes. Lower runs first; later passes observe earlier ones.
func (k SourceKind) Priority() int {
	switch k {
	case SourceDescriptions:
		return 0
	case SourceTags:
		return 1
	case SourceTemplate:
		return 2
	case SourceImages:
		return 3
	default:
		return 4
	}
}

type ProgressType string

const (
	ProgressPipelineStart    ProgressType = "pipeline_start"
	ProgressStepStart        ProgressType = "step_start"
	ProgressStepComplete     ProgressType = "step_complete"
	ProgressPipelineComplete ProgressType = "pipeline_complete"
	ProgressPipelineError    ProgressType = "pipeline_error"
)

type ProgressEvent struct {
	Type      ProgressType   `json:"type"`
	Step      string         `json:"step,omitempty"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// ProgressFunc receives orchestrator events. A nil ProgressFunc is valid and ignored.
type ProgressFunc func(ProgressEvent)

func (f ProgressFunc) Emit(event ProgressEvent) {
	if f == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	f(event)
}

type RunCounts struct {
	Descriptions int `json:"descriptions"`
	Tags         int `json:"tags"`
	Template     int `json:"template"`
	Products     int `json:"products"`
	WithImages   int `json:"withImages"`
	ImageEntries int `json:"imageEntries"`
	Rows         int `json:"rows"`
	Metafields   int `json:"metafields"`
}

type RunRow struct {
	ID         int64     `json:"id"`
	TraceID    string    `json:"traceId"`
	Status     string    `json:"status"`
	StartedAt  string    `json:"startedAt"`
	FinishedAt *string   `json:"finishedAt,omitempty"`
	Counts     RunCounts `json:"counts"`
	Error      *string   `json:"error,omitempty"`
}
