package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/khoahotran/profile-editor/adapters/persistence"
	"github.com/khoahotran/profile-editor/internal/config"
	"github.com/khoahotran/profile-editor/pkg/logger"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}
	appLogger := logger.NewZapLogger(cfg.App.Env)
	defer appLogger.Sync()
	appLogger.Info("adding owner into database...")

	owner, err := persistence.NewOwner(cfg.Owner.Email, cfg.Owner.Password)
	if err != nil {
		appLogger.Fatal("cannot build owner", err)
	}

	pool, err := persistence.NewPostgresPool(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("cannot connect DB", err)
	}
	defer pool.Close()

	query := `
		INSERT INTO users (id, email, password_hash)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET password_hash = $3
	`
	_, err = pool.Exec(ctx, query, owner.ID, owner.Email, owner.PasswordHash)
	if err != nil {
		appLogger.Fatal("cannot add user", err)
	}

	appLogger.Info("added or updated owner successfully", zap.String("email", owner.Email))
}
