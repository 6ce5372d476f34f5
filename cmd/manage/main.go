// Command manage runs operator tasks against the identity store: creating the
// role groups and changing group membership or the staff flag. Changes apply
// from the next request the affected user makes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mongodb "github.com/tasktracker/task-api/internal/infrastructure/db/mongo"
	"github.com/tasktracker/task-api/internal/pkg/config"
	"github.com/tasktracker/task-api/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true, Service: "task-manage"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("index creation failed")
	}

	root := newRootCommand(mongodb.NewGroupRepository(db), os.Stdout)
	if err := root.execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
