package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"apartmentng/internal/auth"
	"apartmentng/internal/config"
	"apartmentng/internal/db"
	"apartmentng/internal/media"
	"apartmentng/internal/notify"
	"apartmentng/internal/rate"
	"apartmentng/internal/service"
	"apartmentng/internal/store"
)

// app holds the collaborators every subcommand shares.
type app struct {
	cfg   config.Config
	log   *logrus.Logger
	db    *sql.DB
	st    *store.Store
	codec *auth.Codec
	svc   *service.Service
	host  media.Host
	// mediaDir is set when objects are written to local disk.
	mediaDir string
	closers  []func() error
}

func openDB(cfg config.Config, log logrus.FieldLogger) (*sql.DB, db.Dialect, error) {
	dialect, err := db.ParseDialect(cfg.DBDriver)
	if err != nil {
		return nil, "", err
	}
	sqdb, err := db.Open(dialect, cfg.DataSource(), db.Pool{
		MaxOpen:     cfg.DBMaxOpenConns,
		MaxIdle:     cfg.DBMaxIdleConns,
		MaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, "", fmt.Errorf("open %s database: %w", dialect, err)
	}
	if err := db.ApplyMigrations(sqdb, dialect, cfg.MigrationsDir); err != nil {
		_ = sqdb.Close()
		return nil, "", fmt.Errorf("apply migrations: %w", err)
	}
	log.WithField("driver", dialect).Info("database ready")
	return sqdb, dialect, nil
}

func newApp(ctx context.Context, cfg config.Config, log *logrus.Logger) (*app, error) {
	sqdb, dialect, err := openDB(cfg, log)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, db: sqdb, closers: []func() error{sqdb.Close}}

	a.host, err = newMediaHost(ctx, cfg, log)
	if err != nil {
		a.close()
		return nil, err
	}
	if local, ok := a.host.(*media.LocalHost); ok {
		a.mediaDir = local.Dir()
	}

	a.st = store.New(sqdb, dialect)
	a.codec = auth.NewCodec([]byte(cfg.JWTSecret), cfg.TokenTTL())
	sender := notify.NewSender(newMailTransport(ctx, cfg, log), cfg.FrontendURL, cfg.VerificationTTL())
	a.svc = service.New(cfg, a.st, a.codec, a.host, sender, log)
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.WithError(err).Warn("shutdown: close failed")
		}
	}
}

func newMediaHost(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (media.Host, error) {
	switch cfg.MediaBackend {
	case "s3":
		return media.NewS3Host(ctx, media.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			ForcePathStyle:  cfg.S3ForcePathStyle,
			PublicBaseURL:   cfg.S3PublicBaseURL,
		}, log)
	default:
		return media.NewLocalHost(cfg.MediaLocalDir, cfg.MediaPublicBaseURL, log)
	}
}

func newMailTransport(ctx context.Context, cfg config.Config, log logrus.FieldLogger) notify.Transport {
	switch cfg.MailTransport {
	case "smtp":
		t := notify.NewSMTPTransport(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.MailFrom,
			FromName: cfg.MailFromName,
		})
		if err := t.Probe(ctx); err != nil {
			log.WithError(err).WithField("host", cfg.SMTPHost).Warn("smtp probe failed; verification mail may not be delivered")
		}
		return t
	case "sendgrid":
		return notify.NewSendGridTransport(cfg.SendGridAPIKey, cfg.MailFrom, cfg.MailFromName)
	default:
		return notify.NewLogTransport(log)
	}
}

// newLimiter returns the shared limiter and a closer for any client it opened.
func newLimiter(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (rate.Limiter, func() error, error) {
	if cfg.RateLimitBackend != "redis" {
		return rate.NewMemoryLimiter(), func() error { return nil }, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}
	return rate.NewRedisLimiter(client, log), client.Close, nil
}
