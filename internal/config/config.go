package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const placeholderJWTSecret = "CHANGE_ME_PRODUCTION_JWT_SECRET"

type Config struct {
	ListenAddr  string
	FrontendURL string

	DBDriver          string
	DBDSN             string
	DBPath            string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	MigrationsDir     string

	JWTSecret            string
	TokenTTLHours        int
	VerificationTTLHours int

	TrustProxy           bool
	CORSAllowedOrigins   []string
	ExposeInternalErrors bool

	CaptchaEnabled   bool
	CaptchaProvider  string
	CaptchaVerifyURL string
	CaptchaSecret    string

	PasswordMinLength int
	PasswordMaxLength int

	MailTransport  string
	MailFrom       string
	MailFromName   string
	SMTPHost       string
	SMTPPort       int
	SMTPUser       string
	SMTPPass       string
	SendGridAPIKey string

	MediaBackend       string
	MediaLocalDir      string
	MediaPublicBaseURL string
	S3Bucket           string
	S3Region           string
	S3Endpoint         string
	S3AccessKeyID      string
	S3SecretAccessKey  string
	S3ForcePathStyle   bool
	S3PublicBaseURL    string
	MaxUploadMB        int
	ImageMaxWidth      int
	ImageMaxHeight     int

	RateLimitBackend string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int

	LogLevel  string
	LogFormat string

	HTTPReadTimeoutSec       int
	HTTPReadHeaderTimeoutSec int
	HTTPWriteTimeoutSec      int
	HTTPIdleTimeoutSec       int

	BootstrapAdminEmail    string
	BootstrapAdminPassword string
	BootstrapAdminName     string
}

// Load reads configuration from the process environment. A .env file in the
// working directory, when present, fills keys that are not already set.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		ListenAddr:               env("LISTEN_ADDR", ":8080"),
		FrontendURL:              strings.TrimRight(env("FRONTEND_URL", "http://localhost:5173"), "/"),
		DBDriver:                 strings.ToLower(env("APP_DB_DRIVER", "sqlite")),
		DBDSN:                    env("APP_DB_DSN", ""),
		DBPath:                   env("APP_DB_PATH", "./data/app.db"),
		DBMaxOpenConns:           envInt("APP_DB_MAX_OPEN_CONNS", 4),
		DBMaxIdleConns:           envInt("APP_DB_MAX_IDLE_CONNS", 2),
		DBConnMaxLifetime:        time.Duration(envInt("APP_DB_CONN_MAX_LIFETIME_MIN", 30)) * time.Minute,
		MigrationsDir:            env("MIGRATIONS_DIR", "migrations"),
		JWTSecret:                env("JWT_SECRET", placeholderJWTSecret),
		TokenTTLHours:            envInt("TOKEN_TTL_HOURS", 7*24),
		VerificationTTLHours:     envInt("VERIFICATION_TTL_HOURS", 24),
		TrustProxy:               envBool("TRUST_PROXY", false),
		CORSAllowedOrigins:       envCSV("CORS_ALLOWED_ORIGINS"),
		ExposeInternalErrors:     envBool("EXPOSE_INTERNAL_ERRORS", false),
		CaptchaEnabled:           envBool("CAPTCHA_ENABLED", false),
		CaptchaProvider:          strings.ToLower(env("CAPTCHA_PROVIDER", "turnstile")),
		CaptchaVerifyURL:         env("CAPTCHA_VERIFY_URL", ""),
		CaptchaSecret:            env("CAPTCHA_SECRET", ""),
		PasswordMinLength:        envInt("PASSWORD_MIN_LENGTH", 6),
		PasswordMaxLength:        envInt("PASSWORD_MAX_LENGTH", 128),
		MailTransport:            strings.ToLower(env("MAIL_TRANSPORT", "log")),
		MailFrom:                 env("MAIL_FROM", "no-reply@apartmentng.com"),
		MailFromName:             env("MAIL_FROM_NAME", "ApartmentNG"),
		SMTPHost:                 env("SMTP_HOST", "127.0.0.1"),
		SMTPPort:                 envInt("SMTP_PORT", 587),
		SMTPUser:                 env("SMTP_USER", ""),
		SMTPPass:                 env("SMTP_PASS", ""),
		SendGridAPIKey:           env("SENDGRID_API_KEY", ""),
		MediaBackend:             strings.ToLower(env("MEDIA_BACKEND", "local")),
		MediaLocalDir:            env("MEDIA_LOCAL_DIR", "./uploads"),
		MediaPublicBaseURL:       strings.TrimRight(env("MEDIA_PUBLIC_BASE_URL", "/uploads"), "/"),
		S3Bucket:                 env("S3_BUCKET", ""),
		S3Region:                 env("S3_REGION", "us-east-1"),
		S3Endpoint:               env("S3_ENDPOINT", ""),
		S3AccessKeyID:            env("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey:        env("S3_SECRET_ACCESS_KEY", ""),
		S3ForcePathStyle:         envBool("S3_FORCE_PATH_STYLE", false),
		S3PublicBaseURL:          strings.TrimRight(env("S3_PUBLIC_BASE_URL", ""), "/"),
		MaxUploadMB:              envInt("MAX_UPLOAD_MB", 50),
		ImageMaxWidth:            envInt("IMAGE_MAX_WIDTH", 1200),
		ImageMaxHeight:           envInt("IMAGE_MAX_HEIGHT", 800),
		RateLimitBackend:         strings.ToLower(env("RATE_LIMIT_BACKEND", "memory")),
		RedisAddr:                env("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:            env("REDIS_PASSWORD", ""),
		RedisDB:                  envInt("REDIS_DB", 0),
		LogLevel:                 strings.ToLower(env("LOG_LEVEL", "info")),
		LogFormat:                strings.ToLower(env("LOG_FORMAT", "text")),
		HTTPReadTimeoutSec:       envInt("HTTP_READ_TIMEOUT_SEC", 30),
		HTTPReadHeaderTimeoutSec: envInt("HTTP_READ_HEADER_TIMEOUT_SEC", 5),
		HTTPWriteTimeoutSec:      envInt("HTTP_WRITE_TIMEOUT_SEC", 120),
		HTTPIdleTimeoutSec:       envInt("HTTP_IDLE_TIMEOUT_SEC", 60),
		BootstrapAdminEmail:      env("BOOTSTRAP_ADMIN_EMAIL", ""),
		BootstrapAdminPassword:   env("BOOTSTRAP_ADMIN_PASSWORD", ""),
		BootstrapAdminName:       env("BOOTSTRAP_ADMIN_NAME", "Admin"),
	}
	if len(cfg.CORSAllowedOrigins) == 0 && cfg.FrontendURL != "" {
		cfg.CORSAllowedOrigins = []string{cfg.FrontendURL}
	}

	if cfg.DBMaxOpenConns <= 0 || cfg.DBMaxIdleConns < 0 {
		return Config{}, fmt.Errorf("invalid DB pool config")
	}
	switch cfg.DBDriver {
	case "sqlite":
	case "postgres", "mysql":
		if strings.TrimSpace(cfg.DBDSN) == "" {
			return Config{}, fmt.Errorf("APP_DB_DSN is required for APP_DB_DRIVER=%s", cfg.DBDriver)
		}
	default:
		return Config{}, fmt.Errorf("APP_DB_DRIVER must be one of: sqlite, postgres, mysql")
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" ||
		cfg.JWTSecret == placeholderJWTSecret ||
		len(cfg.JWTSecret) < 32 {
		return Config{}, fmt.Errorf("JWT_SECRET must be set to a strong non-default value (>=32 chars)")
	}
	if cfg.TokenTTLHours <= 0 || cfg.VerificationTTLHours <= 0 {
		return Config{}, fmt.Errorf("token lifetimes must be positive")
	}
	if cfg.PasswordMinLength < 6 {
		return Config{}, fmt.Errorf("password min length must be >= 6")
	}
	if cfg.PasswordMaxLength < cfg.PasswordMinLength {
		return Config{}, fmt.Errorf("password max length must be >= min length")
	}
	switch cfg.MailTransport {
	case "log":
	case "smtp":
		if cfg.SMTPPort <= 0 {
			return Config{}, fmt.Errorf("invalid SMTP_PORT")
		}
	case "sendgrid":
		if strings.TrimSpace(cfg.SendGridAPIKey) == "" {
			return Config{}, fmt.Errorf("SENDGRID_API_KEY is required when MAIL_TRANSPORT=sendgrid")
		}
	default:
		return Config{}, fmt.Errorf("MAIL_TRANSPORT must be one of: log, smtp, sendgrid")
	}
	switch cfg.MediaBackend {
	case "local":
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return Config{}, fmt.Errorf("S3_BUCKET is required when MEDIA_BACKEND=s3")
		}
	default:
		return Config{}, fmt.Errorf("MEDIA_BACKEND must be one of: local, s3")
	}
	if cfg.MaxUploadMB <= 0 || cfg.ImageMaxWidth <= 0 || cfg.ImageMaxHeight <= 0 {
		return Config{}, fmt.Errorf("upload limits must be positive")
	}
	switch cfg.RateLimitBackend {
	case "memory", "redis":
	default:
		return Config{}, fmt.Errorf("RATE_LIMIT_BACKEND must be one of: memory, redis")
	}
	if cfg.CaptchaEnabled {
		if strings.TrimSpace(cfg.CaptchaSecret) == "" {
			return Config{}, fmt.Errorf("CAPTCHA_SECRET is required when CAPTCHA_ENABLED=true")
		}
		if strings.TrimSpace(cfg.CaptchaVerifyURL) == "" {
			switch cfg.CaptchaProvider {
			case "turnstile", "":
				cfg.CaptchaVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"
			case "hcaptcha":
				cfg.CaptchaVerifyURL = "https://hcaptcha.com/siteverify"
			default:
				return Config{}, fmt.Errorf("unsupported CAPTCHA_PROVIDER: %s", cfg.CaptchaProvider)
			}
		}
	}
	return cfg, nil
}

func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHours) * time.Hour
}

func (c Config) VerificationTTL() time.Duration {
	return time.Duration(c.VerificationTTLHours) * time.Hour
}

func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// DataSource returns the driver DSN; sqlite falls back to DBPath.
func (c Config) DataSource() string {
	if c.DBDriver == "sqlite" && strings.TrimSpace(c.DBDSN) == "" {
		return c.DBPath
	}
	return c.DBDSN
}

func env(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return d
	}
	return n
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return d
	}
	return b
}

func envCSV(k string) []string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
