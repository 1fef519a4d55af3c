package main

import (
	"context"
	"fmt"
	"os"
	"time"

	mongoMigration "bankops/internal/migrations/mongo"
	postgresMigration "bankops/internal/migrations/postgres"
	"bankops/pkg/client"
	"bankops/pkg/config"
	"bankops/pkg/logger"

	"github.com/urfave/cli/v2"
)

const JobName = "migrate"

func timeoutFlag() cli.Flag {
	return &cli.DurationFlag{
		Name:  "timeout",
		Value: 120 * time.Second,
		Usage: "overall deadline for the migration",
	}
}

func main() {
	log := logger.New(logger.Config{
		Level:   os.Getenv(config.EnvLogLevel),
		Format:  logger.JSON,
		Service: JobName,
	})

	app := &cli.App{
		Name:  JobName,
		Usage: "create collections, validators, indexes and tables",
		Commands: []*cli.Command{
			{
				Name:  "mongo",
				Usage: "apply collection validators and indexes",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "uri", Value: config.DefaultMongoURI, EnvVars: []string{config.EnvMongoURI}},
					&cli.StringFlag{Name: "database", Value: config.DefaultMongoDatabaseName, EnvVars: []string{config.EnvMongoDatabaseName}},
					timeoutFlag(),
				},
				Action: func(c *cli.Context) error {
					ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
					defer cancel()

					clients := client.NewClient()
					clients.SetMongo(log, c.String("uri"), config.DefaultMongoConnTimeout)
					defer clients.GracefulShutdown(log)

					log.Info("Starting Mongo migration", "database", c.String("database"))
					return mongoMigration.RunMigration(ctx, clients.Mongo, c.String("database"), log)
				},
			},
			{
				Name:  "postgres",
				Usage: "create the cards and atm_devices tables",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dsn", Required: true, EnvVars: []string{config.EnvPostgresDSN}},
					timeoutFlag(),
				},
				Action: func(c *cli.Context) error {
					ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
					defer cancel()

					clients := client.NewClient()
					clients.SetPostgres(log, c.String("dsn"), config.DefaultMongoConnTimeout)
					defer clients.GracefulShutdown(log)

					log.Info("Starting Postgres migration")
					return postgresMigration.RunMigration(ctx, clients.Postgres, log)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal("Migration failed", "error", err)
	}
	fmt.Println("Migration completed successfully.")
}
