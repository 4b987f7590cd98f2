package config

import "testing"

const validSecret = "this_is_a_valid_long_jwt_signing_secret_123456"

func TestLoadRejectsDefaultJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", placeholderJWTSecret)
	_, err := Load()
	if err == nil {
		t.Fatalf("expected Load to fail with default jwt secret")
	}
}

func TestLoadRejectsShortJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "too-short")
	if _, err := Load(); err == nil {
		t.Fatalf("expected Load to fail with short jwt secret")
	}
}

func TestLoadPasswordBounds(t *testing.T) {
	t.Setenv("JWT_SECRET", validSecret)
	t.Setenv("PASSWORD_MIN_LENGTH", "16")
	t.Setenv("PASSWORD_MAX_LENGTH", "12")
	_, err := Load()
	if err == nil {
		t.Fatalf("expected Load to fail for invalid password bounds")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", validSecret)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TokenTTL().Hours() != 168 {
		t.Fatalf("expected 7 day token ttl, got %v", cfg.TokenTTL())
	}
	if cfg.VerificationTTL().Hours() != 24 {
		t.Fatalf("expected 24h verification ttl, got %v", cfg.VerificationTTL())
	}
	if cfg.DataSource() != cfg.DBPath {
		t.Fatalf("expected sqlite data source to fall back to path, got %q", cfg.DataSource())
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != cfg.FrontendURL {
		t.Fatalf("expected CORS origins to default to frontend url, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.MaxUploadBytes() != 50<<20 {
		t.Fatalf("unexpected max upload bytes %d", cfg.MaxUploadBytes())
	}
}

func TestLoadRejectsUnknownDriverAndBackends(t *testing.T) {
	cases := map[string]string{
		"APP_DB_DRIVER":      "oracle",
		"MAIL_TRANSPORT":     "pigeon",
		"MEDIA_BACKEND":      "ftp",
		"RATE_LIMIT_BACKEND": "etcd",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("JWT_SECRET", validSecret)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected Load to fail for %s=%s", key, value)
			}
		})
	}
}

func TestLoadRequiresDSNForServerDatabases(t *testing.T) {
	t.Setenv("JWT_SECRET", validSecret)
	t.Setenv("APP_DB_DRIVER", "postgres")
	t.Setenv("APP_DB_DSN", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected Load to fail without APP_DB_DSN")
	}
}

func TestLoadRequiresBucketForS3(t *testing.T) {
	t.Setenv("JWT_SECRET", validSecret)
	t.Setenv("MEDIA_BACKEND", "s3")
	t.Setenv("S3_BUCKET", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected Load to fail without S3_BUCKET")
	}
}
