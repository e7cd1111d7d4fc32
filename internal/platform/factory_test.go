package platform_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"taskbridge/internal/platform"
	"taskbridge/internal/testutil"
)

// mapResolver is a Resolver over fixed maps.
type mapResolver struct {
	active   map[string]platform.ID
	settings map[string]map[platform.ID]platform.Settings
	err      error
	reads    int
}

func newMapResolver() *mapResolver {
	return &mapResolver{
		active:   make(map[string]platform.ID),
		settings: make(map[string]map[platform.ID]platform.Settings),
	}
}

func (m *mapResolver) set(user string, id platform.ID, s platform.Settings) {
	m.active[user] = id
	if m.settings[user] == nil {
		m.settings[user] = make(map[platform.ID]platform.Settings)
	}
	m.settings[user][id] = s
}

func (m *mapResolver) ActivePlatform(ctx context.Context, userID string) (platform.ID, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	id, ok := m.active[userID]
	return id, ok, nil
}

func (m *mapResolver) Settings(ctx context.Context, userID string, id platform.ID) (platform.Settings, bool, error) {
	m.reads++
	s, ok := m.settings[userID][id]
	return s, ok, nil
}

func newTestFactory(r *platform.Registry) *platform.Factory {
	logger, _ := test.NewNullLogger()
	return platform.NewFactory(r, logger)
}

func TestResolveForUser_NotConfigured(t *testing.T) {
	r := platform.NewRegistry()
	if err := r.Register(testutil.NewFakePlatform().Registration("trello")); err != nil {
		t.Fatal(err)
	}

	_, err := newTestFactory(r).ResolveForUser(context.Background(), "u1", newMapResolver())

	if !errors.Is(err, platform.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestResolveForUser_EmptySelectionIsNotConfigured(t *testing.T) {
	res := newMapResolver()
	res.active["u1"] = ""

	_, err := newTestFactory(platform.NewRegistry()).ResolveForUser(context.Background(), "u1", res)

	if !errors.Is(err, platform.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

// A user whose platform was removed gets ErrUnknownPlatform however
// complete their settings are.
func TestResolveForUser_RemovedPlatform(t *testing.T) {
	r := platform.NewRegistry()
	if err := r.Register(testutil.NewFakePlatform().Registration("trello")); err != nil {
		t.Fatal(err)
	}
	res := newMapResolver()
	res.set("u1", "asana", platform.Settings{platform.TokenKey: "valid", "workspace": "w"})

	_, err := newTestFactory(r).ResolveForUser(context.Background(), "u1", res)

	if !errors.Is(err, platform.ErrUnknownPlatform) {
		t.Fatalf("expected ErrUnknownPlatform, got %v", err)
	}
	if res.reads != 0 {
		t.Errorf("settings should not be read for an unknown platform, read %d times", res.reads)
	}
}

func TestResolveForUser_MissingSettings(t *testing.T) {
	r := platform.NewRegistry()
	fake := testutil.NewFakePlatform()
	if err := r.Register(fake.Registration("trello", "board")); err != nil {
		t.Fatal(err)
	}
	f := newTestFactory(r)
	ctx := context.Background()

	tests := []struct {
		name     string
		settings platform.Settings
		stored   bool
	}{
		{"nothing stored", nil, false},
		{"no token", platform.Settings{"board": "b"}, true},
		{"blank token", platform.Settings{platform.TokenKey: "  ", "board": "b"}, true},
		{"missing required key", platform.Settings{platform.TokenKey: "t"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newMapResolver()
			res.active["u1"] = "trello"
			if tt.stored {
				res.set("u1", "trello", tt.settings)
			}

			_, err := f.ResolveForUser(ctx, "u1", res)
			if !errors.Is(err, platform.ErrInvalidSettings) {
				t.Errorf("expected ErrInvalidSettings, got %v", err)
			}
		})
	}
	if fake.Constructed != 0 {
		t.Errorf("constructor should not run for incomplete settings, ran %d times", fake.Constructed)
	}
}

func TestResolveForUser_ConstructorRejects(t *testing.T) {
	r := platform.NewRegistry()
	fake := testutil.NewFakePlatform()
	cause := errors.New("token is not a JWT")
	fake.NewErr = cause
	if err := r.Register(fake.Registration("trello")); err != nil {
		t.Fatal(err)
	}
	res := newMapResolver()
	res.set("u1", "trello", platform.Settings{platform.TokenKey: "garbage"})

	_, err := newTestFactory(r).ResolveForUser(context.Background(), "u1", res)

	if !errors.Is(err, platform.ErrInvalidSettings) {
		t.Errorf("expected ErrInvalidSettings, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected cause to be kept, got %v", err)
	}
}

func TestResolveForUser_ResolverError(t *testing.T) {
	res := newMapResolver()
	res.err = errors.New("database is locked")

	_, err := newTestFactory(platform.NewRegistry()).ResolveForUser(context.Background(), "u1", res)

	if !errors.Is(err, res.err) {
		t.Errorf("expected resolver error, got %v", err)
	}
	if errors.Is(err, platform.ErrNotConfigured) {
		t.Error("resolver failure must not look like an unconfigured user")
	}
}

// Two users on two platforms each get their own.
func TestResolveForUser_PerUserPlatforms(t *testing.T) {
	r := platform.NewRegistry()
	trello := testutil.NewFakePlatform()
	notion := testutil.NewFakePlatform()
	if err := r.Register(trello.Registration("trello")); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(notion.Registration("notion")); err != nil {
		t.Fatal(err)
	}
	res := newMapResolver()
	res.set("u1", "trello", platform.Settings{platform.TokenKey: "t1"})
	res.set("u2", "notion", platform.Settings{platform.TokenKey: "n2"})
	f := newTestFactory(r)
	ctx := context.Background()

	i1, err := f.ResolveForUser(ctx, "u1", res)
	if err != nil {
		t.Fatalf("u1: %v", err)
	}
	i2, err := f.ResolveForUser(ctx, "u2", res)
	if err != nil {
		t.Fatalf("u2: %v", err)
	}

	if i1.ID != "trello" || i1.UserID != "u1" {
		t.Errorf("u1: got %s/%s", i1.ID, i1.UserID)
	}
	if i2.ID != "notion" || i2.UserID != "u2" {
		t.Errorf("u2: got %s/%s", i2.ID, i2.UserID)
	}
	if trello.Settings[platform.TokenKey] != "t1" || notion.Settings[platform.TokenKey] != "n2" {
		t.Errorf("constructors got wrong settings: %v, %v", trello.Settings, notion.Settings)
	}

	if _, err := i1.CreateTask(ctx, platform.TaskRecord{Title: "for trello"}); err != nil {
		t.Fatal(err)
	}
	if len(trello.Tasks()) != 1 || len(notion.Tasks()) != 0 {
		t.Errorf("task went to the wrong platform: trello=%d notion=%d", len(trello.Tasks()), len(notion.Tasks()))
	}
}

func TestResolveForUser_ConstructorGetsCopy(t *testing.T) {
	r := platform.NewRegistry()
	mutating := platform.Registration{
		ID: "mut",
		New: func(s platform.Settings) (platform.Platform, error) {
			s[platform.TokenKey] = "changed"
			return testutil.NewFakePlatform(), nil
		},
	}
	if err := r.Register(mutating); err != nil {
		t.Fatal(err)
	}
	stored := platform.Settings{platform.TokenKey: "orig"}
	res := newMapResolver()
	res.set("u1", "mut", stored)

	if _, err := newTestFactory(r).ResolveForUser(context.Background(), "u1", res); err != nil {
		t.Fatal(err)
	}
	if stored[platform.TokenKey] != "orig" {
		t.Errorf("stored settings were modified: %v", stored)
	}
}

func TestResolveForUser_NilPlatform(t *testing.T) {
	r := platform.NewRegistry()
	nilReg := platform.Registration{
		ID:  "nil",
		New: func(s platform.Settings) (platform.Platform, error) { return nil, nil },
	}
	if err := r.Register(nilReg); err != nil {
		t.Fatal(err)
	}
	res := newMapResolver()
	res.set("u1", "nil", platform.Settings{platform.TokenKey: "x"})

	_, err := newTestFactory(r).ResolveForUser(context.Background(), "u1", res)

	if !errors.Is(err, platform.ErrInvalidSettings) {
		t.Errorf("expected ErrInvalidSettings, got %v", err)
	}
}

func TestNewFactory_Defaults(t *testing.T) {
	f := platform.NewFactory(nil, nil)
	if f.Registry() != platform.DefaultRegistry {
		t.Error("expected default registry")
	}
	if f.Timeout != 0 {
		t.Errorf("expected no timeout, got %v", f.Timeout)
	}
}
