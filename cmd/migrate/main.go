package main

import (
	"fmt"
	"log"
	"os"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/config"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/db"
	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"
)

func main() {
	cliApp := &cli.App{
		Name:  "migrate",
		Usage: "manage the scorekeeper database schema",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "config.yaml",
				Usage:   "path to the configuration file",
				EnvVars: []string{"CONFIG_FILE"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply every pending migration",
				Action: withDB(func(c *cli.Context, database *sqlx.DB, dir string) error {
					if err := db.RunMigrations(database.DB, dir); err != nil {
						return err
					}
					return printVersion(database, dir)
				}),
			},
			{
				Name:  "down",
				Usage: "roll back applied migrations",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "steps", Value: 1, Usage: "number of migrations to roll back"},
				},
				Action: withDB(func(c *cli.Context, database *sqlx.DB, dir string) error {
					if err := db.RollbackMigrations(database.DB, dir, c.Int("steps")); err != nil {
						return err
					}
					return printVersion(database, dir)
				}),
			},
			{
				Name:  "version",
				Usage: "print the current schema version",
				Action: withDB(func(c *cli.Context, database *sqlx.DB, dir string) error {
					return printVersion(database, dir)
				}),
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func withDB(fn func(c *cli.Context, database *sqlx.DB, dir string) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.Load(c.String("config"))
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		database, err := db.Open(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer database.Close()
		return fn(c, database, cfg.Database.MigrationsDir)
	}
}

func printVersion(database *sqlx.DB, dir string) error {
	version, dirty, err := db.MigrationVersion(database.DB, dir)
	if err != nil {
		return err
	}
	if dirty {
		fmt.Printf("Schema version: %d (dirty)\n", version)
		return nil
	}
	fmt.Printf("Schema version: %d\n", version)
	return nil
}
