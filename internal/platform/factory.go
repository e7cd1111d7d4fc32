package platform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Factory builds platform instances from a user's stored settings.
type Factory struct {
	registry *Registry
	logger   *log.Logger

	// Timeout bounds every operation on a resolved instance.
	// Zero leaves only the caller's deadline.
	Timeout time.Duration
}

// NewFactory creates a factory over registry. A nil logger uses the
// logrus standard logger.
func NewFactory(registry *Registry, logger *log.Logger) *Factory {
	if registry == nil {
		registry = DefaultRegistry
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Factory{registry: registry, logger: logger}
}

// Registry returns the registry the factory dispatches on.
func (f *Factory) Registry() *Registry {
	return f.registry
}

// ResolveForUser returns the platform the user has configured.
//
// It fails with ErrNotConfigured if no platform is selected, ErrUnknownPlatform
// if the selection is not registered (whatever settings are stored), and
// ErrInvalidSettings if required keys are missing or the constructor rejects
// them. Construction does not touch the network; callers that want a live
// check call ValidateCredentials on the result.
func (f *Factory) ResolveForUser(ctx context.Context, userID string, resolver Resolver) (*Instance, error) {
	logger := f.logger.WithField("user_id", userID)

	active, ok, err := resolver.ActivePlatform(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve active platform: %w", err)
	}
	id := NormalizeID(string(active))
	if !ok || id == "" {
		logger.Debug("platform.resolve.not_configured")
		return nil, fmt.Errorf("%w for user %s", ErrNotConfigured, userID)
	}
	logger = logger.WithField("platform", string(id))

	reg, err := f.registry.Lookup(id)
	if err != nil {
		logger.Debug("platform.resolve.unknown")
		return nil, err
	}

	stored, ok, err := resolver.Settings(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("load %s settings: %w", id, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: no %s settings stored", ErrInvalidSettings, id)
	}
	if missing := MissingKeys(reg, stored); len(missing) > 0 {
		logger.WithField("missing", missing).Debug("platform.resolve.invalid_settings")
		return nil, fmt.Errorf("%w: %s requires %s", ErrInvalidSettings, id, strings.Join(missing, ", "))
	}

	p, err := reg.New(stored.Clone())
	if err != nil {
		if errors.Is(err, ErrInvalidSettings) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSettings, id, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s constructor returned no platform", ErrInvalidSettings, id)
	}

	logger.Debug("platform.resolve")
	return &Instance{
		Platform: newGuard(p, id, userID, f.Timeout, f.logger),
		ID:       id,
		UserID:   userID,
	}, nil
}

// MissingKeys returns the required keys that are absent or blank in s.
func MissingKeys(reg Registration, s Settings) []string {
	var missing []string
	for _, k := range reg.RequiredKeys() {
		if strings.TrimSpace(s[k]) == "" {
			missing = append(missing, k)
		}
	}
	return missing
}
