// Package identity carries the requesting caller through a request context.
package identity

import (
	"context"

	"github.com/gofrs/uuid/v5"
)

// Caller is the identity a request runs as. The zero value is anonymous.
type Caller struct {
	ID uuid.UUID
}

// Anonymous is the caller of unauthenticated requests.
var Anonymous = Caller{}

// As returns an authenticated caller for id.
func As(id uuid.UUID) Caller { return Caller{ID: id} }

// Authenticated reports whether the caller carries an identity.
func (c Caller) Authenticated() bool { return c.ID != uuid.Nil }

// Is reports whether the caller is the user id.
func (c Caller) Is(id uuid.UUID) bool { return c.Authenticated() && c.ID == id }

type ctxKey string

const callerKey ctxKey = "vidgraph.caller"

// WithCaller stores the authenticated caller in context.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

// FromContext fetches the caller from context, anonymous if absent.
func FromContext(ctx context.Context) Caller {
	c, _ := ctx.Value(callerKey).(Caller)
	return c
}
