package platform

import "context"

// Resolver supplies per-user stored settings.
// The factory only reads through it; storage policy, including which
// platform counts as active, belongs to the implementation.
type Resolver interface {
	// ActivePlatform returns the user's selected platform.
	// ok is false if the user has none.
	ActivePlatform(ctx context.Context, userID string) (id ID, ok bool, err error)

	// Settings returns the user's settings for one platform.
	// ok is false if nothing is stored.
	Settings(ctx context.Context, userID string, id ID) (s Settings, ok bool, err error)
}
