package main

import (
	"context"

	"github.com/trezcool/academia/core"
)

func (cli *commandLine) resetPassword(role core.Role, email, pwd string) error {
	if err := cli.authSvc.ResetPassword(context.Background(), role, email, pwd); err != nil {
		return err
	}
	logger.Printf("password of %s %q reset", role, email)
	return nil
}
