package main

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"go.uber.org/dig"

	dig_container "github.com/trezcool/academia/apps/api/di/dig"
	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	logsvc "github.com/trezcool/academia/services/logger"
)

type appParams struct {
	dig.In

	Conf      *core.Config
	APILogger *logsvc.RollbarLogger
	DBLogger  core.Logger `name:"dbLogger"`
	DB        *sqlx.DB
	Server    *echoapi.Server
}

func main() {
	c := dig_container.New()
	must(c.Invoke(run))
}

func run(p appParams) {
	conf, apiLogger, server := p.Conf, p.APILogger, p.Server
	defer apiLogger.Close()

	// =========================================================================
	// Initialize App

	apiLogger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))

	if p.DB != nil {
		defer func() {
			if err := p.DB.Close(); err != nil {
				p.DBLogger.Error("Failed to close", err)
			}
		}()
	}
	defer apiLogger.Info("Application stopped")

	// =========================================================================
	// Start API Service

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		apiLogger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		apiLogger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shut down and shed load
		if err := server.Shutdown(ctx); err != nil {
			apiLogger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				apiLogger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
