package config

import (
	"os"
	"testing"
)

func TestGetIntBool(t *testing.T) {
	os.Setenv("X_INT", "42")
	t.Cleanup(func() { os.Unsetenv("X_INT") })
	if v := getInt("X_INT", 1); v != 42 {
		t.Fatalf("want 42, got %d", v)
	}

	os.Setenv("X_BOOL_T", "true")
	os.Setenv("X_BOOL_F", "false")
	t.Cleanup(func() { os.Unsetenv("X_BOOL_T"); os.Unsetenv("X_BOOL_F") })
	if !getBool("X_BOOL_T", false) {
		t.Fatalf("want true")
	}
	if getBool("X_BOOL_F", true) {
		t.Fatalf("want false")
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"CMS_BASE_PATH", "S3_REGION", "S3_URL_STYLE", "AUTH_ACCESS_MIN", "RABBITMQ_EXCHANGE"} {
		if os.Getenv(key) != "" {
			t.Skipf("%s set in environment", key)
		}
	}
	cfg, store, closer, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if closer != nil {
		t.Fatal("no apollo closer expected without APOLLO_ENABLE")
	}
	if store == nil {
		t.Fatal("store must not be nil")
	}
	if cfg.CMS.BasePath != "/admin" {
		t.Fatalf("base path = %q", cfg.CMS.BasePath)
	}
	if cfg.Storage.Region != "auto" || cfg.Storage.URLStyle != "path" {
		t.Fatalf("storage defaults: %+v", cfg.Storage)
	}
	if cfg.Auth.AccessMin != 15 || cfg.Auth.SessionDays != 7 {
		t.Fatalf("auth defaults: %+v", cfg.Auth)
	}
	if cfg.MQ.Exchange != "cms.events" {
		t.Fatalf("mq exchange = %q", cfg.MQ.Exchange)
	}
}
