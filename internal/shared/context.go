package shared

import "context"

type actorContextKey struct{}

// Actor identifies the authenticated principal acting on a request. The
// gateway in front of this service resolves authentication and forwards the
// principal in a trusted header; handlers stash it here.
type Actor struct {
	ID   string
	Name string
}

// ContextWithActor stores the acting principal in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the acting principal from context. The zero Actor
// is returned when none was set.
func ActorFromContext(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorContextKey{}).(Actor)
	return actor
}
