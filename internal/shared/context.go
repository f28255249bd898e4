package shared

import "context"

type actorContextKey struct{}

// Actor identifies the caller of an operation. Authentication happens upstream.
type Actor struct {
	StaffID    int64
	CustomerID int64
}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorContextKey{}).(Actor)
	return actor
}
