package database

import (
	"time"
)

// Item is a canonical record. Records are written once and never updated.
type Item struct {
	ID          int64
	Title       string
	IdentityKey string // feed entry link, or local://email/<message id>
	PublishedAt time.Time
	Body        string
	SourceName  string
	CreatedAt   time.Time
}

type SourceCount struct {
	SourceName string
	Count      int
}

type InsertResult int

const (
	InsertFailed InsertResult = iota
	Inserted
	Duplicate
)

func (r InsertResult) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case Duplicate:
		return "duplicate"
	default:
		return "failed"
	}
}
