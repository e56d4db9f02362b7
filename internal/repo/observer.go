package repo

import (
	"context"
)

type Op int

const (
	OpCreated Op = iota
	OpUpdated
	OpDeleted
)

func (o Op) String() string {
	switch o {
	case OpCreated:
		return "Created"
	case OpUpdated:
		return "Updated"
	case OpDeleted:
		return "Deleted"
	}
	return "Unknown"
}

// Actor identifies who performed a write and from where.
type Actor struct {
	UserID   *uint
	Username string
	IP       string
}

// Event describes one committed repository write. Payload holds the entity as
// written (for deletes, its last state).
type Event struct {
	Op      Op
	Entity  string
	ID      uint
	Name    string
	Detail  string
	Actor   Actor
	Payload interface{}
}

// Observer receives every repository write, synchronously and in registration
// order. Observers must not fail the write: Notify has no error return.
type Observer interface {
	Notify(ctx context.Context, e Event)
}

func notify(ctx context.Context, observers []Observer, e Event) {
	for _, o := range observers {
		o.Notify(ctx, e)
	}
}
