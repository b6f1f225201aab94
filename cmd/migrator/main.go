package main

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"flag"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/wager-platform-poc/internal/shared/config"
	"github.com/radieske/wager-platform-poc/internal/shared/db"
	"github.com/radieske/wager-platform-poc/internal/shared/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Usuários de demonstração criados pelo -seed quando a tabela está vazia
var seedUsers = []struct {
	name    string
	balance decimal.Decimal
}{
	{"Agustin", decimal.NewFromInt(50)},
	{"Tomas", decimal.NewFromInt(10)},
	{"Angela", decimal.NewFromInt(100)},
}

func main() {
	seed := flag.Bool("seed", false, "insere usuários de demonstração se a base estiver vazia")
	flag.Parse()

	cfg := config.Load()
	log, err := logger.New("migrator", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := run(log, cfg, *seed); err != nil {
		log.Fatal("migration run failed", zap.Error(err))
	}
	log.Info("migration run finished")
}

func run(log *zap.Logger, cfg config.Config, seed bool) error {
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer pg.Close()

	driver, err := postgres.WithInstance(pg, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("init postgres driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("m.Up: %w", err)
	}
	log.Info("migrations applied")

	if seed {
		if err := seedDemoUsers(context.Background(), pg); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		log.Info("demo users seeded")
	}

	return nil
}

// seedDemoUsers popula usuários iniciais apenas em base vazia
func seedDemoUsers(ctx context.Context, pg *sql.DB) error {
	var count int
	if err := pg.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, u := range seedUsers {
		if _, err := pg.ExecContext(ctx,
			`INSERT INTO users (name, balance) VALUES ($1,$2)`,
			u.name, u.balance.String()); err != nil {
			return err
		}
	}
	return nil
}
