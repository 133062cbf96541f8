package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind names a source kind. Each kind has its own cycle and schedule.
type Kind string

const (
	KindFeed Kind = "feed"
	KindMail Kind = "mail"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindFeed, KindMail:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown cycle kind: %q", s)
	}
}

// Cycle is one complete pass over every configured source of a kind.
type Cycle interface {
	Kind() Kind
	Run(ctx context.Context) (*Summary, error)
}

type Task struct {
	ID        string
	Kind      Kind
	StartedAt time.Time
}

func NewTask(kind Kind) Task {
	return Task{
		ID:        uuid.NewString(),
		Kind:      kind,
		StartedAt: time.Now(),
	}
}

func (t *Task) GetDuration() time.Duration {
	if t.StartedAt.IsZero() {
		return 0
	}
	return time.Since(t.StartedAt)
}
