// Command migrate applies the embedded SQL migrations to DATABASE_URL.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"panic-list/internal/db"
	"panic-list/migrations"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.Fatalf("load .env: %v", err)
	}
	if err := run(context.Background(), os.Getenv("DATABASE_URL")); err != nil {
		logrus.Fatal(err)
	}
}

func run(ctx context.Context, dsn string) error {
	if dsn == "" {
		return errors.New("DATABASE_URL is not set")
	}
	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()

	applied, err := db.Migrate(ctx, pool, migrations.FS)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		logrus.Info("schema up to date")
		return nil
	}
	for _, name := range applied {
		logrus.WithField("migration", name).Info("applied")
	}
	return nil
}
