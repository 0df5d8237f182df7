package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"time"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/services/email/dummy"
	"github.com/trezcool/academia/storage/database"
	"github.com/trezcool/academia/storage/database/dummy"
	"github.com/trezcool/academia/storage/database/sqlx"
)

var logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

func main() {
	conf := core.NewConfig()

	var db *sql.DB
	var accounts auth.AccountRepository
	if conf.Database.Engine == "memory" {
		accounts = dummydb.NewAccountRepository(dummydb.Open())
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		sqlxDB, err := database.Open(ctx, conf)
		cancel()
		errAndDie(err)
		defer sqlxDB.Close()
		db = sqlxDB.DB
		accounts = sqlxrepos.NewAccountRepository(sqlxDB)
	}

	v := core.NewValidator()
	auth.InitValidators(v.Engine, v.Translator)

	// start CLI
	cli := commandLine{
		db: db,
		authSvc: auth.NewService(
			accounts, nil /* instructors */, nil /* students */,
			auth.NewRateLimiter(conf.Auth.MaxLoginAttempts, conf.Auth.LoginAttemptWindow),
			dummymail.NewService(conf.AppName, conf.DefaultFromEmail.String(), true /* quiet */),
			v, conf.Auth.BcryptCost,
		),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", describe(err))
		}
		os.Exit(1)
	}
}

// describe spells the field errors of validation failures out.
func describe(err error) string {
	if vErr, ok := core.AsValidationError(err); ok && len(vErr.Fields) > 0 {
		msg := ""
		for _, fe := range vErr.Fields {
			msg += "\n  " + fe.Field + ": " + fe.Error
		}
		return "invalid input:" + msg
	}
	return err.Error()
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
