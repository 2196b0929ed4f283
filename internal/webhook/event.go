package webhook

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mattjoyce/runnerpool/internal/validate"
)

// ActionQueued is the workflow_job action for a job waiting for a runner.
const ActionQueued = "queued"

// ErrInvalidPayload is returned when a body cannot be decoded or lacks
// required fields.
var ErrInvalidPayload = errors.New("invalid payload")

// WorkflowJobEvent is the subset of a GitHub workflow_job delivery the pool
// acts on. Unknown fields are ignored.
type WorkflowJobEvent struct {
	Action      string       `json:"action"`
	WorkflowJob *WorkflowJob `json:"workflow_job"`
}

// WorkflowJob is the workflow_job object of the payload.
type WorkflowJob struct {
	ID         int64       `json:"id"`
	RunID      int64       `json:"run_id"`
	Status     string      `json:"status"`
	Labels     []string    `json:"labels"`
	Repository *Repository `json:"repository"`
}

// Repository identifies the repository that owns the job.
type Repository struct {
	FullName string `json:"full_name"`
}

// DecodeEvent parses body and checks required fields. Errors wrap
// ErrInvalidPayload, and validation failures also wrap a validate.List.
func DecodeEvent(body []byte) (*WorkflowJobEvent, error) {
	var event WorkflowJobEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if violations := event.Validate(); len(violations) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, violations)
	}
	return &event, nil
}

// Validate reports missing required fields using JSON field paths.
func (e *WorkflowJobEvent) Validate() validate.List {
	var l validate.List
	l.NotBlank("action", e.Action)
	l.Present("workflow_job", e.WorkflowJob != nil)
	if e.WorkflowJob != nil {
		l.Merge("workflow_job", e.WorkflowJob.Validate())
	}
	return l
}

// Validate reports missing labels and repository fields relative to workflow_job.
func (j *WorkflowJob) Validate() validate.List {
	var l validate.List
	l.Present("labels", j.Labels != nil)
	l.Present("repository", j.Repository != nil)
	if j.Repository != nil {
		l.NotBlank("repository.full_name", j.Repository.FullName)
	}
	return l
}

// Queued reports whether the event asks for a runner.
func (e *WorkflowJobEvent) Queued() bool {
	return e.Action == ActionQueued
}
