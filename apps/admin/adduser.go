package main

import (
	"context"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/auth"
)

type authService interface {
	CreateAdmin(ctx context.Context, na auth.NewAdmin) (auth.Admin, error)
	ResetPassword(ctx context.Context, role core.Role, email, pwd string) error
}

// addUser creates the admin account with email, or updates its name and password.
func (cli *commandLine) addUser(name, email, pwd string) error {
	adm, err := cli.authSvc.CreateAdmin(context.Background(), auth.NewAdmin{Name: name, Email: email, Password: pwd})
	if err != nil {
		return err
	}
	logger.Printf("admin %q (#%d) saved", adm.Email, adm.ID)
	return nil
}
