package portal

import "context"

// Actor identifies who triggered an operation.
type Actor struct {
	ID       string
	Name     string
	Role     Role
	ClientID string
}

type actorContextKey struct{}

// ContextWithActor stores the acting session on ctx.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFrom extracts the acting session from ctx, if present.
func ActorFrom(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
