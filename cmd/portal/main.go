package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"entry-portal/internal/config"
	"entry-portal/internal/notify"
	"entry-portal/internal/portal"
	"entry-portal/internal/server"
)

// Set via ldflags at build time
var version = "dev"

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "portal",
		Short:         "Entry portal: stage completion tracking for competition entries",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	rootCmd.AddCommand(serveCmd(), recomputeCmd(), migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// env is what every subcommand starts from.
type env struct {
	cfg    config.Config
	logger *zap.Logger
}

func loadEnv() (*env, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger}, nil
}

func (e *env) service(st *stores) *portal.Service {
	return portal.New(st.records, st.files, portal.Options{
		Now:              e.cfg.Now,
		BatchConcurrency: e.cfg.BatchConcurrency,
	}, e.logger)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (and the admin Telegram bot when configured)",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			defer func() { _ = e.logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, err := openStores(ctx, e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer st.close()

			svc := e.service(st)

			var notifier notify.Notifier = notify.Nop{}
			var bot *notify.Telegram
			if e.cfg.TelegramToken != "" {
				bot, err = notify.NewTelegram(e.cfg.TelegramToken, e.cfg.AdminTGIDs, svc, e.logger)
				if err != nil {
					return err
				}
				notifier = bot
			}

			httpSrv := server.New(e.cfg, svc, notifier, e.logger)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				e.logger.Info("http listening", zap.String("addr", e.cfg.HTTPAddr))
				if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			})
			if bot != nil {
				g.Go(func() error {
					if err := bot.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
						e.logger.Warn("telegram bot stopped", zap.Error(err))
					}
					return nil
				})
			}
			g.Go(func() error {
				<-gctx.Done()
				e.logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return httpSrv.Shutdown(shutdownCtx)
			})

			err = g.Wait()
			e.logger.Info("bye")
			return err
		},
	}
}

func recomputeCmd() *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Recompute every stage status of every entry once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			defer func() { _ = e.logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, err := openStores(ctx, e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer st.close()

			rep, err := e.service(st).Recompute(ctx)
			if err != nil {
				return err
			}

			if !quiet && e.cfg.TelegramToken != "" {
				bot, err := notify.NewTelegram(e.cfg.TelegramToken, e.cfg.AdminTGIDs, nil, e.logger)
				if err != nil {
					e.logger.Warn("telegram unavailable", zap.Error(err))
				} else if err := bot.NotifyAdmins(ctx, notify.RecomputeSummary(rep)); err != nil {
					e.logger.Warn("notify admins", zap.Error(err))
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not notify admins")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations (postgres backend)",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			if e.cfg.StoreBackend != config.BackendPostgres {
				return fmt.Errorf("migrate needs STORE_BACKEND=postgres, got %s", e.cfg.StoreBackend)
			}
			return migratePostgres(e.cfg, e.logger)
		},
	}
}
