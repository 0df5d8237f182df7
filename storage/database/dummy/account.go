package dummydb

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/auth"
)

type accountRepository struct {
	db *DB
}

var _ auth.AccountRepository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *DB) auth.AccountRepository {
	return &accountRepository{db: db}
}

func (repo *accountRepository) GetAccountByEmail(_ context.Context, role core.Role, email string) (auth.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	switch role {
	case core.RoleAdmin:
		for _, adm := range repo.db.admins {
			if adm.Email == email {
				return auth.Account{ID: adm.ID, Role: role, Name: adm.Name, Email: adm.Email, PasswordHash: adm.PasswordHash, IsActive: adm.IsActive}, nil
			}
		}
	case core.RoleInstructor:
		for _, inst := range repo.db.instructors {
			if inst.Email == email {
				return auth.Account{ID: inst.ID, Role: role, Name: inst.Name(), Email: inst.Email, PasswordHash: inst.PasswordHash, IsActive: inst.IsActive}, nil
			}
		}
	case core.RoleStudent:
		for _, std := range repo.db.students {
			if std.Email == email {
				return auth.Account{ID: std.ID, Role: role, Name: std.Name(), Email: std.Email, PasswordHash: std.PasswordHash, IsActive: std.IsActive}, nil
			}
		}
	default:
		return auth.Account{}, errors.Wrapf(core.ErrUnknownRole, "looking %q up", role)
	}
	return auth.Account{}, auth.ErrNotFound
}

func (repo *accountRepository) SetLastLogin(_ context.Context, role core.Role, id int, at time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	switch role {
	case core.RoleAdmin:
		if adm, ok := repo.db.admins[id]; ok {
			adm.LastLogin = &at
			return nil
		}
	case core.RoleInstructor:
		if inst, ok := repo.db.instructors[id]; ok {
			inst.LastLogin = &at
			return nil
		}
	case core.RoleStudent:
		if std, ok := repo.db.students[id]; ok {
			std.LastLogin = &at
			return nil
		}
	default:
		return errors.Wrapf(core.ErrUnknownRole, "updating %q", role)
	}
	return auth.ErrNotFound
}

func (repo *accountRepository) SetPassword(_ context.Context, role core.Role, id int, hash []byte) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	switch role {
	case core.RoleAdmin:
		if adm, ok := repo.db.admins[id]; ok {
			adm.PasswordHash = hash
			return nil
		}
	case core.RoleInstructor:
		if inst, ok := repo.db.instructors[id]; ok {
			inst.PasswordHash = hash
			return nil
		}
	case core.RoleStudent:
		if std, ok := repo.db.students[id]; ok {
			std.PasswordHash = hash
			return nil
		}
	default:
		return errors.Wrapf(core.ErrUnknownRole, "updating %q", role)
	}
	return auth.ErrNotFound
}

func (repo *accountRepository) EmailExists(_ context.Context, email string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, inst := range repo.db.instructors {
		if inst.Email == email {
			return true, nil
		}
	}
	for _, std := range repo.db.students {
		if std.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (repo *accountRepository) UpsertAdmin(_ context.Context, adm auth.Admin) (auth.Admin, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.admins {
		if existing.Email == adm.Email {
			existing.Name = adm.Name
			existing.PasswordHash = adm.PasswordHash
			existing.IsActive = adm.IsActive
			return *existing, nil
		}
	}
	adm.ID = repo.db.nextPK("admins")
	repo.db.admins[adm.ID] = &adm
	return adm, nil
}
