package main

import (
	"context"

	"github.com/pressly/goose/v3"

	"github.com/trezcool/academia/storage/database"
)

var gooseRunFunc = goose.RunContext // mockable

func (cli *commandLine) migrate(args []string) error {
	if err := database.UseEmbeddedMigrations(); err != nil {
		return err
	}
	return gooseRunFunc(context.Background(), args[0], cli.db, database.MigrationsDir, args[1:]...)
}
