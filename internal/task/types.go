package task

import (
	"context"
	"encoding/json"
	"time"
)

type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Kind names the job a task runs.
type Kind string

const (
	KindAudio     Kind = "audio"
	KindVideo     Kind = "video"
	KindSubtitles Kind = "subtitles"
	KindTitle     Kind = "title"
)

// Result is the payload of a completed task. Only the fields relevant to the
// job kind are populated.
type Result struct {
	Title    string `json:"title,omitempty"`
	FileName string `json:"file_name,omitempty"`
	Lang     string `json:"lang,omitempty"`
	Text     string `json:"text,omitempty"`
	Message  string `json:"message,omitempty"`
}

// State is one of Processing, Completed or Failed.
type State interface {
	Status() Status
	sealed()
}

type Processing struct{}

type Completed struct {
	Result Result
}

type Failed struct {
	Message string
}

func (Processing) Status() Status { return StatusProcessing }
func (Completed) Status() Status  { return StatusCompleted }
func (Failed) Status() Status     { return StatusError }

func (Processing) sealed() {}
func (Completed) sealed()  {}
func (Failed) sealed()     {}

// IsTerminal reports whether no further transitions may leave s.
func IsTerminal(s State) bool {
	return s != nil && s.Status() != StatusProcessing
}

// Task is a snapshot of one unit of tracked work.
type Task struct {
	ID         string
	Kind       Kind
	State      State
	AutoUpload *bool
	CreatedAt  time.Time
	FinishedAt time.Time
}

// Status is shorthand for t.State.Status().
func (t Task) Status() Status {
	if t.State == nil {
		return StatusProcessing
	}
	return t.State.Status()
}

// Result returns the completed payload, if any.
func (t Task) Result() (Result, bool) {
	c, ok := t.State.(Completed)
	return c.Result, ok
}

// Error returns the failure message, if any.
func (t Task) Error() (string, bool) {
	f, ok := t.State.(Failed)
	return f.Message, ok
}

type taskJSON struct {
	ID         string  `json:"id"`
	Kind       Kind    `json:"kind"`
	Status     Status  `json:"status"`
	Result     *Result `json:"result"`
	Error      *string `json:"error"`
	AutoUpload *bool   `json:"autoUpload,omitempty"`
	CreatedAt  string  `json:"created_at"`
	FinishedAt string  `json:"finished_at,omitempty"`
}

// MarshalJSON renders result and error as null unless the state carries them.
func (t Task) MarshalJSON() ([]byte, error) {
	out := taskJSON{
		ID:         t.ID,
		Kind:       t.Kind,
		Status:     t.Status(),
		AutoUpload: t.AutoUpload,
		CreatedAt:  t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if res, ok := t.Result(); ok {
		out.Result = &res
	}
	if msg, ok := t.Error(); ok {
		out.Error = &msg
	}
	if !t.FinishedAt.IsZero() {
		out.FinishedAt = t.FinishedAt.UTC().Format(time.RFC3339)
	}
	return json.Marshal(out)
}

// Job is the body of a task. taskID namespaces any files the job writes; a
// returned error becomes the task's failure message.
type Job func(ctx context.Context, taskID string) (Result, error)

type Options struct {
	MaxConcurrentTasks int
}

const defaultMaxConcurrent = 3
