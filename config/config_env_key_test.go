package config

import (
	"testing"

	"github.com/slighter12/go-lib/database/postgres"
)

func TestCanonicalizeEnvKey_UsesExistingCamelCaseKeys(t *testing.T) {
	existing := map[string]any{
		"postgres": map[string]any{
			"sslMode": "disable",
			"master": map[string]any{
				"userName": "user",
			},
		},
		"events": map[string]any{
			"topicId": "",
		},
		"auth": map[string]any{
			"accessTokenTTL": "15m",
			"argon2": map[string]any{
				"memoryKiB": 65536,
			},
		},
		"secretKey": map[string]any{
			"access": "",
		},
	}

	tests := []struct {
		envKey string
		want   string
	}{
		{envKey: "POSTGRES_SSLMODE", want: "postgres.sslMode"},
		{envKey: "POSTGRES_MASTER_USERNAME", want: "postgres.master.userName"},
		{envKey: "EVENTS_TOPICID", want: "events.topicId"},
		{envKey: "AUTH_ACCESSTOKENTTL", want: "auth.accessTokenTTL"},
		{envKey: "AUTH_ARGON2_MEMORYKIB", want: "auth.argon2.memoryKiB"},
		{envKey: "SECRETKEY_ACCESS", want: "secretKey.access"},
		{envKey: "NEW_FEATURE_FLAG", want: "new.feature.flag"},
	}

	for _, tt := range tests {
		t.Run(tt.envKey, func(t *testing.T) {
			if got := canonicalizeEnvKey(tt.envKey, existing); got != tt.want {
				t.Fatalf("canonicalizeEnvKey(%q) = %q, want %q", tt.envKey, got, tt.want)
			}
		})
	}
}

func TestAuthConfigDefaults_RaiseRefreshTokenBytes(t *testing.T) {
	cfg := &Config{Auth: &AuthConfig{RefreshTokenBytes: 16}}
	cfg.applyDefaults()

	if cfg.Auth.RefreshTokenBytes != MinRefreshTokenBytes {
		t.Fatalf("RefreshTokenBytes = %d, want %d", cfg.Auth.RefreshTokenBytes, MinRefreshTokenBytes)
	}
	if cfg.Auth.AccessTokenTTL != defaultAccessTokenTTL {
		t.Fatalf("AccessTokenTTL = %s, want %s", cfg.Auth.AccessTokenTTL, defaultAccessTokenTTL)
	}
	if cfg.RateLimit.RefillTokens != cfg.RateLimit.Capacity {
		t.Fatalf("RefillTokens = %d, want capacity %d", cfg.RateLimit.RefillTokens, cfg.RateLimit.Capacity)
	}
}

func TestIsProduction(t *testing.T) {
	cfg := &Config{}
	cfg.Env.Env = "Production"

	if !cfg.IsProduction() {
		t.Fatal("expected production env to be detected case-insensitively")
	}
}

func TestTrustedProxyRanges(t *testing.T) {
	cfg := &Config{}
	cfg.HTTP.TrustedProxies = []string{"10.0.0.0/8", " 203.0.113.5 ", "2001:db8::1"}

	ranges, err := cfg.TrustedProxyRanges()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ranges) != 3 {
		t.Fatalf("expected 3 ranges, got %d", len(ranges))
	}
	if got := ranges[1].String(); got != "203.0.113.5/32" {
		t.Fatalf("bare IPv4 should be a /32, got %s", got)
	}
	if got := ranges[2].String(); got != "2001:db8::1/128" {
		t.Fatalf("bare IPv6 should be a /128, got %s", got)
	}

	cfg.HTTP.TrustedProxies = []string{"10.0.0.0/33"}
	if _, err := cfg.TrustedProxyRanges(); err == nil {
		t.Fatal("expected an error for an invalid CIDR")
	}
}

func TestValidate_RejectsReadReplicas(t *testing.T) {
	cfg := &Config{Postgres: &postgres.DBConn{}}
	cfg.SecretKey.Access = "access"
	cfg.SecretKey.Cookie = "cookie"

	if err := cfg.validate(); err != nil {
		t.Fatalf("unexpected error without replicas: %v", err)
	}

	cfg.Postgres.Replicas = []postgres.ConnectionConfig{{Host: "replica-0", Port: "5432"}}
	if err := cfg.validate(); err == nil {
		t.Fatal("expected replicas to be rejected")
	}
}
