package tally

import "context"

// Actor identifies the user performing an operation, carried on the
// context so call signatures stay stable.
type Actor struct {
	ID   string
	Name string
	Role string
}

// Actions checked against the feature gate.
const (
	ActionLockPeriod   = "period.lock"
	ActionUnlockPeriod = "period.unlock"
	ActionDeleteCharge = "charge.delete"
	ActionReconcile    = "account.reconcile"
)

// FeatureGate decides whether an actor may perform a privileged action.
// A nil gate allows everything.
type FeatureGate interface {
	Can(ctx context.Context, actor Actor, action string) bool
}

type actorKey struct{}

// WithActor returns a context carrying the acting user.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFromContext returns the acting user, or a zero Actor when none
// was attached.
func ActorFromContext(ctx context.Context) Actor {
	a, _ := ctx.Value(actorKey{}).(Actor)
	return a
}

// authorize checks the gate for the context's actor. Operations that
// mutate locked history call this before touching the store.
func (e *Engine) authorize(ctx context.Context, action string) error {
	if e.gate == nil {
		return nil
	}
	if !e.gate.Can(ctx, ActorFromContext(ctx), action) {
		return ErrPermissionDenied
	}
	return nil
}
