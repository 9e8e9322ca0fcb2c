package main

import (
	log "github.com/sirupsen/logrus"

	"github.com/ariefcatur/game-topup-api/internal/config"
	"github.com/ariefcatur/game-topup-api/internal/postgres"
)

func migrateUp(cfg config.Config, logger log.FieldLogger) error {
	m, err := postgres.NewMigrator(cfg.PostgresDSN, logger)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up()
}
