package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"chatd/console"
	"chatd/moderation"
	"chatd/observability"
	"chatd/repositories"
	"chatd/runtime"
	"chatd/runtime/workers"
	"chatd/server"
	"chatd/services"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so every defer executes before the process
// exits with a non-zero status.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	observability.LogSystemInformation(log)

	// 2. Storage (BadgerDB + bluge history index)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	index, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return fmt.Errorf("history index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing history index...")
		_ = index.Close()
	}()

	// 3. Shared state & services
	directory := repositories.NewUserDirectory(db)
	registry := runtime.NewSessionRegistry()
	mailbox := repositories.NewMailboxStore(db, index, directory, log)

	moderator, err := moderation.NewModerator(config.CensoredWords, maskRune(config.MaskCharacter))
	if err != nil {
		return fmt.Errorf("moderation setup failed: %w", err)
	}

	authService := services.NewAuthService(directory, registry)
	chatService := services.NewChatService(mailbox, directory, moderator, log)

	// 4. Boot reconciliation: no session can be live yet, so every
	// persisted logged-in flag left behind by a crash gets cleared.
	corrected, err := registry.Reconcile(directory)
	if err != nil {
		return fmt.Errorf("startup reconciliation failed: %w", err)
	}
	if corrected > 0 {
		log.Info("Cleared stale logged-in flags", "corrected", corrected)
	}
	logRegisteredUsers(log, directory)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. TCP server
	srv := server.New(log, server.Config{
		Addr:          fmt.Sprintf("%s:%d", config.Host, config.Port),
		ReadTimeout:   config.ReadTimeout,
		WriteTimeout:  config.WriteTimeout,
		ShutdownGrace: config.ShutdownGrace,
	}, authService, chatService, registry)
	if err := srv.Listen(); err != nil {
		return err
	}

	// 7. Supervised background workers
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		workers.NewHeartbeatWorker(log, registry, config.HeartbeatInterval),
		workers.NewReconcilerWorker(log, registry, directory, mailbox, config.ReconcileInterval, srv.HandlerExited()),
	)
	sup.Start(ctx)

	// 8. Admin console on stdin; /quit triggers the same graceful path
	// as an interrupt signal.
	adminConsole := console.New(log, os.Stdin, os.Stdout, authService, chatService, registry, directory, stop)
	go adminConsole.Run(ctx)

	// 9. Serve until a signal or console quit, then drain
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Serve(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		<-errChan
	}

	// 10. Final cleanup
	sup.Stop()
	log.Info("Program stopped cleanly")
	return nil
}

func logRegisteredUsers(log *slog.Logger, directory repositories.IUserDirectory) {
	records, err := directory.List()
	if err != nil {
		log.Info("Unable to list registered users")
		return
	}
	logins := make([]string, 0, len(records))
	for _, r := range records {
		logins = append(logins, r.Login)
	}
	log.Info("Registered users", "count", len(logins), "logins", logins)
}

func maskRune(s string) rune {
	for _, r := range s {
		return r
	}
	return '*'
}
