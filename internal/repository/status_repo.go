package repository

import (
	"context"

	"github.com/user/applicant-harvester/internal/entity"
)

// StatusRepository echoes the controller's user-facing state so it survives
// a reconnecting client.
type StatusRepository interface {
	SetStatus(ctx context.Context, status entity.RunStatus) error
	// GetStatus returns found=false when nothing has been stored yet.
	GetStatus(ctx context.Context) (status entity.RunStatus, found bool, err error)
}

// EventPublisher delivers progress and terminal events to a status sink.
type EventPublisher interface {
	Publish(ctx context.Context, event entity.Event) error
}
