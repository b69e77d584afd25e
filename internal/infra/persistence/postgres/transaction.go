// Package postgres implements the repositories on GORM and PostgreSQL.
package postgres

import (
	"context"

	"gorm.io/gorm"

	domainerrors "campus/internal/domain/errors"
	"campus/internal/domain/repository"
	"campus/internal/errors"
)

type gormTransactionManager struct {
	db *gorm.DB
}

// txRepositories binds the repositories to one open transaction.
type txRepositories struct {
	tx *gorm.DB
}

func (r *txRepositories) Users() repository.UserRepository { return NewUserRepository(r.tx) }

func (r *txRepositories) Tokens() repository.TokenRepository { return NewTokenRepository(r.tx) }

func (r *txRepositories) SocialAccounts() repository.SocialAccountRepository {
	return NewSocialAccountRepository(r.tx)
}

func NewTransactionManager(db *gorm.DB) repository.TransactionManager {
	return &gormTransactionManager{db: db}
}

// Execute runs fn inside one transaction. A non-nil result rolls back and is returned as is,
// so domain errors raised inside fn keep their identity. Begin and commit failures surface
// as ErrTransactionFailed.
func (tm *gormTransactionManager) Execute(ctx context.Context, fn func(tx repository.TxRepositories) error) error {
	tx := tm.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return errors.Wrap(domainerrors.ErrTransactionFailed, "begin: "+tx.Error.Error())
	}

	// Roll back on panic and re-panic for echo's Recover middleware.
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(&txRepositories{tx: tx}); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			return errors.Wrapf(err, "rollback failed: %v", rbErr)
		}

		return err
	}

	if err := tx.Commit().Error; err != nil {
		return errors.Wrap(domainerrors.ErrTransactionFailed, "commit: "+err.Error())
	}

	return nil
}
