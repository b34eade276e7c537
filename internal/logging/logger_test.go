package logging

import "testing"

func TestNew(t *testing.T) {
	for _, cfg := range []Config{
		{Level: "info"},
		{Level: "debug", Env: "dev"},
		{Level: "warn", Env: "prod"},
	} {
		l, err := New(cfg)
		if err != nil {
			t.Fatalf("New(%+v): %v", cfg, err)
		}
		_ = l.Sync()
	}
}

func TestNew_BadLevel(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
