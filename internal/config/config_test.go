package config

import (
	"os"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	os.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	os.Setenv("MONGODB_DATABASE", "syncify_test")
	os.Setenv("REDIS_HOST", "localhost")
	os.Setenv("REDIS_PORT", "6379")
	os.Setenv("SPOTIFY_CLIENT_ID", "cid")
	os.Setenv("SESSION_SECRET", "testsecret123456789012345678901234")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.MongoDB.URI == "" || cfg.Redis.Host == "" {
		t.Fatalf("unexpected empty config values: %+v", cfg)
	}
	if cfg.Spotify.AccountsURL == "" || cfg.Spotify.APIURL == "" {
		t.Fatalf("expected default Spotify URLs, got: %+v", cfg.Spotify)
	}
	if cfg.Session.CookieName != "syncify_sid" {
		t.Fatalf("unexpected cookie name: %q", cfg.Session.CookieName)
	}
}
