package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "campus/internal/delivery/context"
	"campus/internal/domain/entity"
	domainerrors "campus/internal/domain/errors"
	"campus/internal/domain/repository"
	"campus/internal/domain/service"
	"campus/internal/errors"
	"campus/internal/usecase"
)

// sessionEstablisher issues sessions for users that already passed authentication. It is
// shared by local and social login.
type sessionEstablisher struct {
	txManager repository.TransactionManager
	issuer    service.TokenIssuer
	logger    *slog.Logger
	now       func() time.Time
}

func newSessionEstablisher(txManager repository.TransactionManager, issuer service.TokenIssuer, logger *slog.Logger) *sessionEstablisher {
	return &sessionEstablisher{
		txManager: txManager,
		issuer:    issuer,
		logger:    logger,
		now:       time.Now,
	}
}

// establish reuses the user's valid session record or creates a new one, then signs a fresh
// access token. The user row lock serialises concurrent logins of the same user.
func (e *sessionEstablisher) establish(ctx context.Context, userID int64, meta usecase.SessionMeta) (*usecase.SessionOutput, error) {
	var (
		lockedUser   *entity.User
		refreshToken string
		reused       bool
	)

	err := e.txManager.Execute(ctx, func(tx repository.TxRepositories) error {
		userRepo := tx.Users()
		tokenRepo := tx.Tokens()

		user, err := userRepo.LockByID(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "failed to lock user")
		}
		// The account may have changed between authentication and the lock.
		if err := gateError(user.SessionGate()); err != nil {
			return err
		}
		lockedUser = user

		existing, err := tokenRepo.FindTokenByUser(ctx, userID)
		switch {
		case err == nil && existing.IsValid && !e.expired(existing):
			refreshToken = existing.RefreshToken
			reused = true

			return nil
		case err == nil && existing.IsValid:
			invalid := false
			if err := tokenRepo.UpdateToken(ctx, existing.ID, entity.TokenPatch{IsValid: &invalid}); err != nil {
				return errors.Wrap(err, "failed to retire expired session")
			}
		case err != nil && !errors.Is(err, repository.ErrTokenNotFound):
			return errors.Wrap(err, "failed to find session")
		}

		refreshToken, err = e.issuer.IssueRefreshToken()
		if err != nil {
			return errors.Wrap(domainerrors.ErrTokenIssueFailed, err.Error())
		}

		return errors.Wrap(tokenRepo.CreateToken(ctx, &entity.Token{
			UserID:       userID,
			RefreshToken: refreshToken,
			IsValid:      true,
			UserAgent:    meta.UserAgent,
			IP:           meta.IP,
		}), "failed to create session")
	})
	if err != nil {
		return nil, err
	}

	claims := entity.NewTokenUser(lockedUser)
	accessToken, err := e.issuer.IssueAccessToken(claims)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrTokenIssueFailed, err.Error())
	}

	deliverycontext.GetLoggerOrDefault(ctx, e.logger).Debug("Session established",
		slog.Int64("userID", userID),
		slog.Bool("reused", reused),
	)

	return &usecase.SessionOutput{
		User:         claims,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// expired reports whether the record outlived the refresh token lifetime since it was last rotated.
func (e *sessionEstablisher) expired(token *entity.Token) bool {
	last := token.UpdatedAt
	if last.IsZero() {
		last = token.CreatedAt
	}
	if last.IsZero() {
		return false
	}

	return e.now().After(last.Add(e.issuer.RefreshTokenTTL()))
}

// gateError maps a failed account gate to the error returned to the client.
func gateError(gate entity.SessionGate) error {
	switch gate {
	case entity.GateEmailNotVerified:
		return errors.WithStack(domainerrors.ErrEmailNotVerified)
	case entity.GateBanned:
		return errors.WithStack(domainerrors.ErrUserBanned)
	default:
		return nil
	}
}
