package disposal

import (
	"context"
	"fmt"
)

// Unit is an opaque caller-owned resource handle subject to coordinated
// teardown. The three phase hooks are all optional; a nil hook is skipped.
//
// Prepare and Cleanup are best effort: their failures are logged but never
// fail the disposal. Dispose is the teardown proper; its error (or panic)
// is what the circuit breaker counts.
type Unit struct {
	// ID is the stable identity used to key in-flight tracking. When
	// empty, the unit's pointer identity is used instead.
	ID string

	// Ref optionally carries the underlying resource for the hooks'
	// convenience. The coordinator never inspects it.
	Ref any

	Prepare func(ctx context.Context) error
	Dispose func(ctx context.Context) error
	Cleanup func(ctx context.Context) error
}

// identity returns the registry key for the unit.
func (u *Unit) identity() string {
	if u.ID != "" {
		return u.ID
	}

	return fmt.Sprintf("unit-%p", u)
}
