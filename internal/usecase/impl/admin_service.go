package impl

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	deliverycontext "campus/internal/delivery/context"
	"campus/internal/domain/entity"
	domainerrors "campus/internal/domain/errors"
	"campus/internal/domain/repository"
	"campus/internal/errors"
	"campus/internal/usecase"
)

type adminService struct {
	txManager repository.TransactionManager
	logger    *slog.Logger
}

// AdminServiceParams holds dependencies for AdminService, injected by Fx.
type AdminServiceParams struct {
	fx.In

	TxManager repository.TransactionManager
	Logger    *slog.Logger
}

// NewAdminService is the constructor for adminService.
func NewAdminService(params AdminServiceParams) usecase.AdminUsecase {
	return &adminService{
		txManager: params.TxManager,
		logger:    params.Logger,
	}
}

// SetBlacklisted updates the ban flag under the user row lock so it cannot interleave with
// a session being established.
func (srv *adminService) SetBlacklisted(ctx context.Context, userID int64, blacklisted bool) (*entity.User, error) {
	var updated *entity.User

	err := srv.txManager.Execute(ctx, func(tx repository.TxRepositories) error {
		userRepo := tx.Users()

		user, err := userRepo.LockByID(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return errors.WithStack(domainerrors.ErrUserNotFound)
			}

			return errors.Wrap(err, "failed to lock user")
		}

		if err := userRepo.SetBlacklisted(ctx, userID, blacklisted); err != nil {
			return errors.Wrap(err, "failed to update user")
		}
		user.Blacklisted = blacklisted
		updated = user

		return nil
	})
	if err != nil {
		return nil, err
	}

	deliverycontext.GetLoggerOrDefault(ctx, srv.logger).Info("Blacklist flag changed",
		slog.Int64("userID", userID),
		slog.Bool("blacklisted", blacklisted),
	)

	return updated, nil
}
