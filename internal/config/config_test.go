package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"teampulse/internal/config"
)

func TestDefaultConfig(t *testing.T) {
	cfg := config.Default("Acme")
	if cfg.Org.Name != "Acme" {
		t.Fatalf("org name: %s", cfg.Org.Name)
	}
	if cfg.Server.Addr != "127.0.0.1:8484" || cfg.Server.BasePath != "/api/v1" {
		t.Fatalf("server defaults: %+v", cfg.Server)
	}
	if cfg.Auth.Secret == "" {
		t.Fatal("expected a generated secret")
	}
	if cfg.Auth.TokenTTLMinutes != 30 || !cfg.Auth.AllowActorHeader {
		t.Fatalf("auth defaults: %+v", cfg.Auth)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.File != "" {
		t.Fatalf("logging defaults: %+v", cfg.Logging)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestGenerateDefaultSecrets(t *testing.T) {
	first, err := config.FromYAML([]byte(config.GenerateDefault("Acme")))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	second, err := config.FromYAML([]byte(config.GenerateDefault("Acme")))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if first.Auth.Secret == second.Auth.Secret {
		t.Fatal("each generated config should carry a fresh secret")
	}
}

func TestFromYAMLValidation(t *testing.T) {
	valid := config.GenerateDefault("Acme")
	cases := []struct {
		name string
		yaml string
	}{
		{"missing org name", strings.Replace(valid, "name: Acme", "name: \"\"", 1)},
		{"bad addr", strings.Replace(valid, "addr: 127.0.0.1:8484", "addr: not-an-addr", 1)},
		{"base path without slash", strings.Replace(valid, "base_path: /api/v1", "base_path: api/v1", 1)},
		{"base path trailing slash", strings.Replace(valid, "base_path: /api/v1", "base_path: /api/v1/", 1)},
		{"ttl above a day", strings.Replace(valid, "token_ttl_minutes: 30", "token_ttl_minutes: 2000", 1)},
		{"unknown level", strings.Replace(valid, "level: info", "level: verbose", 1)},
		{"not yaml", "org: [broken"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := config.FromYAML([]byte(tc.yaml)); err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
		})
	}

	// A zero TTL means the auth layer picks its own default.
	noTTL := strings.Replace(valid, "  token_ttl_minutes: 30\n", "", 1)
	cfg, err := config.FromYAML([]byte(noTTL))
	if err != nil {
		t.Fatalf("omitted ttl should validate: %v", err)
	}
	if cfg.Auth.TokenTTLMinutes != 0 {
		t.Fatalf("ttl: %d", cfg.Auth.TokenTTLMinutes)
	}
}

func TestPath(t *testing.T) {
	if got := config.Path(""); got != "teampulse.yml" {
		t.Fatalf("path: %s", got)
	}
	if got := config.Path("/tmp/ws"); got != filepath.Join("/tmp/ws", "teampulse.yml") {
		t.Fatalf("path: %s", got)
	}
}

func TestLoadFromWorkspace(t *testing.T) {
	dir := t.TempDir()

	cfg, err := config.LoadOptional(dir)
	if err != nil || cfg != nil {
		t.Fatalf("missing config should be nil, nil; got %v, %v", cfg, err)
	}
	if _, err := config.Load(dir); err == nil || !strings.Contains(err.Error(), "run tp init first") {
		t.Fatalf("expected init hint, got %v", err)
	}

	if err := os.WriteFile(config.Path(dir), []byte(config.GenerateDefault("Acme")), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err = config.Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Org.Name != "Acme" {
		t.Fatalf("org name: %s", cfg.Org.Name)
	}
	opt, err := config.LoadOptional(dir)
	if err != nil || opt == nil || opt.Auth.Secret != cfg.Auth.Secret {
		t.Fatalf("optional load mismatch: %v, %v", opt, err)
	}
}
