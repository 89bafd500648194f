package broadcast

import (
	"context"
	"errors"

	"github.com/user/applicant-harvester/internal/entity"
	"github.com/user/applicant-harvester/internal/repository"
)

// Fanout publishes every event to each sink, continuing past failures.
type Fanout []repository.EventPublisher

func (f Fanout) Publish(ctx context.Context, event entity.Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
