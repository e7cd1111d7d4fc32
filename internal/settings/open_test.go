package settings

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"taskbridge/internal/config"
)

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		in       string
		addr     string
		password string
		tls      bool
		wantErr  bool
	}{
		{in: "redis://localhost:6379/0", addr: "localhost:6379"},
		{in: "rediss://:secret@cache.example:6380", addr: "cache.example:6380", password: "secret", tls: true},
		{in: "cache.redis.cache.windows.net:6380,password=pw,ssl=True,abortConnect=False", addr: "cache.redis.cache.windows.net:6380", password: "pw", tls: true},
		{in: "localhost:6379", addr: "localhost:6379"},
		{in: "", wantErr: true},
		{in: "http://nope", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			opts, err := parseRedisURL(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %+v", opts)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if opts.Addr != tt.addr {
				t.Errorf("expected addr %q, got %q", tt.addr, opts.Addr)
			}
			if opts.Password != tt.password {
				t.Errorf("expected password %q, got %q", tt.password, opts.Password)
			}
			if (opts.TLSConfig != nil) != tt.tls {
				t.Errorf("expected tls=%v", tt.tls)
			}
		})
	}
}

func TestOpen_Backends(t *testing.T) {
	ctx := context.Background()

	for _, backend := range []string{config.BackendFile, config.BackendSQLite, config.BackendMemory} {
		t.Run(backend, func(t *testing.T) {
			cfg, err := config.New(t.TempDir())
			if err != nil {
				t.Fatal(err)
			}
			cfg.Settings.Backend = backend

			s, err := Open(ctx, cfg, nil)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer s.Close()
			mustSave(t, s, "u1", "trello", map[string]string{"token": "t"})
		})
	}
}

func TestOpen_FileLocation(t *testing.T) {
	cfg, err := config.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	s, err := Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	fs, ok := s.(*FileStore)
	if !ok {
		t.Fatalf("expected *FileStore, got %T", s)
	}
	if fs.Path() != filepath.Join(cfg.Dir, config.SettingsFile) {
		t.Errorf("unexpected path %q", fs.Path())
	}
}

func TestOpen_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg, err := config.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cfg.Settings.Backend = config.BackendMemory
	cfg.Redis.URL = "redis://" + mr.Addr()

	s, err := Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if _, ok := s.(*Cache); !ok {
		t.Fatalf("expected *Cache, got %T", s)
	}

	mustSave(t, s, "u1", "trello", map[string]string{"token": "t"})
	if _, _, err := s.ActivePlatform(context.Background(), "u1"); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("platform:active:u1") {
		t.Error("expected active selection cached in redis")
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	cfg, err := config.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cfg.Settings.Backend = "etcd"

	if _, err := Open(context.Background(), cfg, nil); err == nil {
		t.Error("expected error")
	}
}
