package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ariefcatur/game-topup-api/internal/auth"
	"github.com/ariefcatur/game-topup-api/internal/config"
	"github.com/ariefcatur/game-topup-api/internal/logging"
	"github.com/ariefcatur/game-topup-api/internal/postgres"
	"github.com/ariefcatur/game-topup-api/internal/users"
)

func main() {
	app := &cli.App{
		Name:  "topupctl",
		Usage: "administer the game top-up API database",
		Commands: []*cli.Command{
			migrateCommand(),
			userCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func withMigrator(fn func(m *postgres.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	m, err := postgres.NewMigrator(cfg.PostgresDSN, logging.New(cfg.LogLevel, "text"))
	if err != nil {
		return err
	}
	defer m.Close()
	return fn(m)
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply or roll back schema migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply all pending migrations",
				Action: func(c *cli.Context) error {
					return withMigrator(func(m *postgres.Migrator) error { return m.Up() })
				},
			},
			{
				Name:  "down",
				Usage: "roll back migrations",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "steps", Value: 1, Usage: "number of migrations to roll back"},
				},
				Action: func(c *cli.Context) error {
					return withMigrator(func(m *postgres.Migrator) error { return m.Down(c.Int("steps")) })
				},
			},
			{
				Name:  "version",
				Usage: "print the applied schema version",
				Action: func(c *cli.Context) error {
					return withMigrator(func(m *postgres.Migrator) error {
						v, dirty, err := m.Version()
						if err != nil {
							return err
						}
						fmt.Fprintf(c.App.Writer, "version=%d dirty=%t\n", v, dirty)
						return nil
					})
				},
			},
		},
	}
}

func userCommand() *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "manage staff users",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "create an ACTIVE staff user with a bcrypt password",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"TOPUPCTL_PASSWORD"}},
					&cli.StringFlag{Name: "role", Value: "staff"},
				},
				Action: createUser,
			},
		},
	}
}

func createUser(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	hash, err := auth.BcryptPasswords{}.Hash(c.String("password"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN, postgres.PoolOptions{MaxConns: 1, MinConns: 0})
	if err != nil {
		return err
	}
	defer db.Close()

	u := &users.User{
		Email:        c.String("email"),
		Name:         c.String("name"),
		Role:         c.String("role"),
		PasswordHash: hash,
	}
	if err := (&users.Repo{DB: db}).Create(ctx, u); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "created user id=%d email=%s role=%s\n", u.ID, u.Email, u.Role)
	return nil
}
