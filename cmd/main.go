/*
Package main is the entry point for the call invite server.

It is responsible for loading configuration, initializing the global logging system,
opening the invite store, setting up the HTTP server, starting the relay hub,
and gracefully handling operating system interrupt signals (SIGINT, SIGTERM)
to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"callinvite/internal/app/access"
	"callinvite/internal/app/db"
	"callinvite/internal/app/db/memory"
	"callinvite/internal/app/invite"
	"callinvite/internal/app/relay"
	"callinvite/internal/configs"
	"callinvite/internal/handler"
	"callinvite/internal/pkg/logx"
	"callinvite/internal/pkg/mail"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Bool("livekit_configured", cfg.LiveKit.Configured()).
		Bool("smtp_enabled", cfg.SMTP.Host != "").
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store invite.Store
	if cfg.DatabaseDSN == "" {
		logx.Warn("DATABASE_URL is not set; invites are kept in memory and lost on restart.")
		store = memory.NewStore()
	} else {
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			logx.Fatal(err, "Failed to initialize database")
		}
		defer pool.Close()
		store = db.NewStore(pool)
	}

	mailer, err := mail.NewSMTPMailer(mail.Settings{
		Host:        cfg.SMTP.Host,
		Port:        cfg.SMTP.Port,
		Username:    cfg.SMTP.User,
		Password:    cfg.SMTP.Password,
		From:        cfg.SMTP.From,
		ImplicitTLS: cfg.SMTP.TLS,
	})
	if err != nil {
		logx.Fatal(err, "Invalid SMTP configuration")
	}

	invites, err := invite.NewService(store, mailer, invite.WithBaseURL(cfg.AppURL))
	if err != nil {
		logx.Fatal(err, "Failed to initialize invite service")
	}

	// Initialize relay hub
	manager := relay.NewManager()

	deps := &handler.AppDeps{
		Config:  cfg,
		Invites: invites,
		Tokens: access.NewIssuer(access.Credentials{
			APIKey:    cfg.LiveKit.APIKey,
			APISecret: cfg.LiveKit.APISecret,
			URL:       cfg.LiveKit.URL,
		}),
		Relay: manager,
	}

	// Setup HTTP server and routes
	router := handler.NewRouter(deps)
	defer router.Stop()

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Call Invite Server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	// Hijacked websocket connections are not tracked by Shutdown, so close the hub explicitly.
	manager.Shutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	logx.Info("Server gracefully stopped.")
}
