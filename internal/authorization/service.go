package authorization

import "context"

// Service checks whether an actor may perform an action on an object.
// Actors are "system" or "user:<id>".
type Service interface {
	Authorize(ctx context.Context, actor string, object string, action string) error
}
