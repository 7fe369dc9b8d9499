package library

import "testing"

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()
	if cfg.StoreDriver != "file" {
		t.Fatalf("want file driver by default, got %q", cfg.StoreDriver)
	}
	if cfg.DueSoonDays != 3 {
		t.Fatalf("want 3-day due-soon window, got %d", cfg.DueSoonDays)
	}
	if cfg.BlockOnFines {
		t.Fatal("strict fine policy must be opt-in")
	}
	if cfg.AdminUser != "admin" {
		t.Fatalf("want default admin account, got %q", cfg.AdminUser)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("LIBRARY_STORE", "sqlite")
	t.Setenv("LIBRARY_BLOCK_ON_FINES", "true")
	t.Setenv("LIBRARY_DUE_SOON_DAYS", "7")
	t.Setenv("LIBRARY_DATA_DIR", t.TempDir())

	cfg := LoadConfig()
	if cfg.StoreDriver != "sqlite" {
		t.Fatalf("want sqlite driver, got %q", cfg.StoreDriver)
	}
	if !cfg.BlockOnFines || cfg.DueSoonDays != 7 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if p := cfg.Policy(); !p.BlockOnFines || p.DueSoonDays != 7 {
		t.Fatalf("policy not derived from config: %+v", p)
	}

	store, err := cfg.OpenStore()
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	store.Close()
}

func TestOpenStoreRejectsUnknownDriver(t *testing.T) {
	cfg := Config{StoreDriver: "oracle"}
	if _, err := cfg.OpenStore(); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
