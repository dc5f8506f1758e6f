package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/CUknot/chat_backend/docs"
	"github.com/CUknot/chat_backend/middleware"
	"github.com/CUknot/chat_backend/server"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			slog.Error("Startup failed", "error", err)
			return err
		}

		docs.SwaggerInfo.Host = "localhost:" + a.cfg.Port
		if a.cfg.LogFormat == "json" {
			gin.SetMode(gin.ReleaseMode)
		}

		router := server.NewRouter(server.Deps{
			Users:              a.users,
			Ledger:             a.ledger,
			Messages:           a.messages,
			Gateway:            a.gateway,
			Secret:             a.cfg.SessionSecret,
			Counter:            middleware.NewRedisCounter(a.redis),
			RateLimitPerMinute: a.cfg.RateLimitPerMinute,
			Checks: map[string]func(context.Context) error{
				"database": func(ctx context.Context) error {
					sqlDB, err := a.db.DB()
					if err != nil {
						return err
					}
					return sqlDB.PingContext(ctx)
				},
				"cache": func(ctx context.Context) error {
					return a.redis.Ping(ctx).Err()
				},
			},
		})
		srv := server.New(a.cfg.Port, a.cfg.AllowedOrigins, router)

		go func() {
			slog.Info("Server running", "port", a.cfg.Port, "storage", a.cfg.StorageBackend)
			slog.Info("Swagger documentation available", "url", "http://localhost:"+a.cfg.Port+"/swagger/index.html")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Server failed", "error", err)
				os.Exit(1)
			}
		}()

		wait := gfshutdown.GracefulShutdown(context.Background(), shutdownTimeout, map[string]gfshutdown.Operation{
			// Clients are closed only after in-flight requests have drained.
			"http-server": func(ctx context.Context) error {
				slog.Info("Graceful shutdown initiated...")
				return errors.Join(srv.Shutdown(ctx), a.close())
			},
		})
		code := <-wait
		slog.Info("Server exited", "code", code)
		if code != 0 {
			os.Exit(code)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
