package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type TaskType string

const (
	TaskTypeDownloadMedia  TaskType = "download_media"
	TaskTypeExtractContent TaskType = "extract_content"
)

const (
	DefaultMaxRetries = 3
)

type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	GetOwner() string
	GetRetryCount() int
	GetMaxRetries() int
	IncrementRetryCount()
	CanRetry() bool
	Start()
	GetDuration() time.Duration
	Finish(err error)
	OnFinish(fn func(error))
	Err() error
}

// Task carries the bookkeeping shared by every task. Owner names the
// document the task works for and is only used in logs.
type Task struct {
	ID         string
	Type       TaskType
	Owner      string
	RetryCount int
	MaxRetries int
	StartedAt  *time.Time

	err      error
	finished bool
	onFinish func(error)
}

func (t *Task) GetID() string {
	return t.ID
}

func (t *Task) GetType() TaskType {
	return t.Type
}

func (t *Task) GetOwner() string {
	return t.Owner
}

func (t *Task) GetRetryCount() int {
	return t.RetryCount
}

func (t *Task) GetMaxRetries() int {
	return t.MaxRetries
}

func (t *Task) IncrementRetryCount() {
	t.RetryCount++
}

func (t *Task) CanRetry() bool {
	return t.RetryCount < t.MaxRetries
}

func (t *Task) Start() {
	now := time.Now()
	t.StartedAt = &now
}

func (t *Task) GetDuration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	return time.Since(*t.StartedAt)
}

// Finish records the final outcome. Only the first call counts.
func (t *Task) Finish(err error) {
	if t.finished {
		return
	}
	t.finished = true
	t.err = err
	if t.onFinish != nil {
		t.onFinish(err)
	}
}

func (t *Task) OnFinish(fn func(error)) {
	t.onFinish = fn
}

// Err is the final error of a finished task, nil on success.
func (t *Task) Err() error {
	return t.err
}

func NewTask(taskType TaskType, owner string) Task {
	return Task{
		ID:         uuid.NewString(),
		Type:       taskType,
		Owner:      owner,
		RetryCount: 0,
		MaxRetries: DefaultMaxRetries,
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
