package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"apartmentng/internal/api"
	"apartmentng/internal/captcha"
	"apartmentng/internal/config"
	"apartmentng/internal/logging"
	"apartmentng/internal/version"
)

func main() {
	root := &cobra.Command{
		Use:           "apartmentng",
		Short:         "ApartmentNG listing marketplace API",
		Version:       version.Current().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
	root.AddCommand(serveCmd(), migrateCmd(), seedAdminCmd(), reconcileMediaCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log := logging.New(cfg.LogLevel, cfg.LogFormat)
			sqdb, _, err := openDB(cfg, log)
			if err != nil {
				return err
			}
			return sqdb.Close()
		},
	}
}

func seedAdminCmd() *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create an admin account if the email is not yet registered",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if email == "" {
				email = cfg.BootstrapAdminEmail
			}
			if password == "" {
				password = cfg.BootstrapAdminPassword
			}
			if name == "" {
				name = cfg.BootstrapAdminName
			}
			if email == "" || password == "" {
				return errors.New("seed-admin: --email and --password (or BOOTSTRAP_ADMIN_*) are required")
			}
			log := logging.New(cfg.LogLevel, cfg.LogFormat)
			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.close()
			created, err := a.svc.EnsureAdmin(cmd.Context(), email, password, name)
			if err != nil {
				return fmt.Errorf("seed admin: %w", err)
			}
			log.WithField("email", email).WithField("created", created).Info("admin seeded")
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	cmd.Flags().StringVar(&name, "name", "", "admin display name")
	return cmd
}

func reconcileMediaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile-media",
		Short: "Retry deletion of hosted media left behind by failed cascades",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log := logging.New(cfg.LogLevel, cfg.LogFormat)
			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.close()
			res, err := a.svc.ReconcileOrphanedMedia(cmd.Context())
			if err != nil {
				return fmt.Errorf("reconcile media: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "attempted=%d removed=%d remaining=%d\n", res.Attempted, res.Removed, res.Remaining)
			return nil
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	if cfg.BootstrapAdminEmail != "" && cfg.BootstrapAdminPassword != "" {
		created, err := a.svc.EnsureAdmin(ctx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword, cfg.BootstrapAdminName)
		if err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		if created {
			log.WithField("email", cfg.BootstrapAdminEmail).Info("bootstrap admin created")
		}
	}

	limiter, closeLimiter, err := newLimiter(ctx, cfg, log)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, closeLimiter)

	handler := api.NewRouter(cfg, a.svc, a.codec, api.Options{
		Limiter:  limiter,
		Captcha:  captcha.NewVerifier(cfg),
		Log:      log,
		MediaDir: a.mediaDir,
	})
	hsrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadTimeout:       time.Duration(cfg.HTTPReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTPReadHeaderTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTPWriteTimeoutSec) * time.Second,
		IdleTimeout:       time.Duration(cfg.HTTPIdleTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.ListenAddr).WithField("version", version.Current().Version).Info("listening")
		if err := hsrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return hsrv.Shutdown(shutdownCtx)
}
