package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"catalogcsv/internal/app"
	"catalogcsv/internal/config"
	"catalogcsv/internal/server"
	"catalogcsv/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)
	logger := cfg.NewLogger()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	runner, err := app.NewRunner(cfg, db, logger)
	must(err)

	srv := server.New(server.Options{
		Runner:   runner,
		DB:       db,
		InputDir: cfg.InputDir,
		UploadMB: cfg.ServerUploadMB,
		Logger:   logger,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	must(srv.ListenAndServe(ctx, cfg.ServerAddr))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
