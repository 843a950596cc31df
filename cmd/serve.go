package cmd

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/slotwise/booking-backend/internal/app"
	"github.com/slotwise/booking-backend/internal/config"
	"github.com/slotwise/booking-backend/internal/db"
	"github.com/slotwise/booking-backend/internal/events"
	"github.com/slotwise/booking-backend/internal/pkg/mq"
	"github.com/slotwise/booking-backend/internal/pkg/obs"
)

func newServeCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			// For receiving Ctrl+C / SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Load config
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			// Connect DB
			pool, err := db.NewPool(ctx, cfg.DBDSN)
			if err != nil {
				return err
			}
			defer pool.Close()

			if migrateUp {
				if err := db.Migrate(ctx, pool); err != nil {
					return err
				}
			}

			// Tracing is optional; without a collector the coordinator's
			// spans go to the default no-op provider.
			if cfg.OTLPEndpoint != "" {
				shutdown, err := obs.InitTracer(ctx, "booking-backend", cfg.OTLPEndpoint)
				if err != nil {
					return err
				}
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = shutdown(shutdownCtx)
				}()
			}

			// Event publishing is optional as well.
			var publisher events.Publisher = events.NopPublisher{}
			if cfg.AMQPURL != "" {
				amqpPub, err := mq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
				if err != nil {
					return err
				}
				defer amqpPub.Close()
				publisher = events.NewAMQPPublisher(amqpPub)
			}

			container := app.NewContainer(app.Config{
				IsProduction: cfg.IsProduction,
				ProdOrigins:  cfg.ProdOrigins,
				DBPool:       pool,
				JWTSecret:    cfg.JWTSecret,
				JWTTTL:       cfg.JWTAccessTokenTTL,
				LockTimeout:  cfg.LockTimeout,
				Publisher:    publisher,
			})

			// Use http.Server for graceful shutdown
			server := &http.Server{
				Addr:    cfg.HTTPAddr,
				Handler: container.Router,
			}

			// Run server in separate goroutine
			go func() {
				log.Printf("server running on %s", cfg.HTTPAddr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalf("server error: %v", err)
				}
			}()

			// Wait for Ctrl+C
			<-ctx.Done()
			log.Println("shutdown signal received")

			// Create a shutdown context with timeout
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			// Shutdown HTTP server
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Printf("server forced to shutdown: %v", err)
			}

			log.Println("server exited gracefully")
			return nil
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")

	return cmd
}
