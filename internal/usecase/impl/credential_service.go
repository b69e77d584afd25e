// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"time"

	"go.uber.org/fx"

	"campus/config"
	deliverycontext "campus/internal/delivery/context"
	"campus/internal/domain/entity"
	domainerrors "campus/internal/domain/errors"
	"campus/internal/domain/repository"
	"campus/internal/domain/service"
	"campus/internal/errors"
	"campus/internal/usecase"
	"campus/internal/util"
)

const (
	// oneTimeTokenBytes is the entropy of verification and reset tokens.
	oneTimeTokenBytes = 40

	loginMethodLocal = "local"

	warnVerificationMailFailed = "verification email could not be sent"
	warnResetMailFailed        = "password reset email could not be sent"
)

// credentialService implements the CredentialUsecase interface.
type credentialService struct {
	txManager  repository.TransactionManager
	userRepo   repository.UserRepository
	tokenRepo  repository.TokenRepository
	socialRepo repository.SocialAccountRepository
	verifier   service.CredentialVerifier
	issuer     service.TokenIssuer
	mailer     service.Mailer
	publisher  service.EventPublisher
	metrics    service.AuthMetrics
	session    *sessionEstablisher
	authCfg    *config.AuthConfig
	origin     string
	logger     *slog.Logger
	now        func() time.Time
}

// CredentialServiceParams holds dependencies for CredentialService, injected by Fx.
type CredentialServiceParams struct {
	fx.In

	TxManager  repository.TransactionManager
	UserRepo   repository.UserRepository
	TokenRepo  repository.TokenRepository
	SocialRepo repository.SocialAccountRepository
	Verifier   service.CredentialVerifier
	Issuer     service.TokenIssuer
	Mailer     service.Mailer
	Publisher  service.EventPublisher
	Metrics    service.AuthMetrics
	Config     *config.Config
	Logger     *slog.Logger
}

// NewCredentialService is the constructor for credentialService.
func NewCredentialService(params CredentialServiceParams) usecase.CredentialUsecase {
	return newCredentialService(params)
}

func newCredentialService(params CredentialServiceParams) *credentialService {
	origin := ""
	if params.Config.Mail != nil {
		origin = params.Config.Mail.Origin
	}

	return &credentialService{
		txManager:  params.TxManager,
		userRepo:   params.UserRepo,
		tokenRepo:  params.TokenRepo,
		socialRepo: params.SocialRepo,
		verifier:   params.Verifier,
		issuer:     params.Issuer,
		mailer:     params.Mailer,
		publisher:  params.Publisher,
		metrics:    params.Metrics,
		session:    newSessionEstablisher(params.TxManager, params.Issuer, params.Logger),
		authCfg:    params.Config.Auth,
		origin:     origin,
		logger:     params.Logger,
		now:        time.Now,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *credentialService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Register creates an unverified local account and mails its verification link.
func (srv *credentialService) Register(ctx context.Context, input *usecase.RegisterInput) (*usecase.RegisterOutput, error) {
	email := util.NormalizeEmail(input.Email)
	srv.log(ctx).Info("Starting registration", slog.String("email", util.MaskEmail(email)))

	// Hash outside the transaction, argon2 is CPU and memory bound.
	passwordHash, err := srv.verifier.Hash(input.Password)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrPasswordHashFailed, err.Error())
	}

	verificationToken, err := util.RandomHex(oneTimeTokenBytes)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrTokenIssueFailed, err.Error())
	}

	var registered *entity.User
	err = srv.txManager.Execute(ctx, func(tx repository.TxRepositories) error {
		userRepo := tx.Users()

		// Held until commit so the first-account role is decided against every committed user.
		if err := userRepo.LockRegistrations(ctx); err != nil {
			return errors.Wrap(err, "failed to lock registrations")
		}

		_, err := userRepo.FindByEmail(ctx, email)
		if err == nil {
			return errors.WithStack(domainerrors.ErrDuplicateEmail)
		}
		if !errors.Is(err, repository.ErrUserNotFound) {
			return errors.Wrap(err, "failed to check email")
		}

		taken, err := userRepo.ExistsByPhone(ctx, input.Phone)
		if err != nil {
			return errors.Wrap(err, "failed to check phone")
		}
		if taken {
			return errors.WithStack(domainerrors.ErrDuplicatePhone)
		}

		count, err := userRepo.Count(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to count users")
		}

		role := entity.RoleForNewAccount(count)

		user := &entity.User{
			FirstName:         input.FirstName,
			LastName:          input.LastName,
			Email:             email,
			PasswordHash:      passwordHash,
			Phone:             input.Phone,
			Gender:            input.Gender,
			Address:           input.Address,
			City:              input.City,
			State:             input.State,
			Country:           input.Country,
			Notification:      true,
			Role:              role,
			VerificationToken: &verificationToken,
		}
		if err := userRepo.Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrUserAlreadyExists) {
				return errors.Wrap(domainerrors.ErrDuplicateEmail, err.Error())
			}

			return errors.Wrap(err, "failed to create user")
		}
		registered = user

		return nil
	})
	if err != nil {
		srv.log(ctx).Warn("Registration failed", slog.String("email", util.MaskEmail(email)), slog.Any("error", err))

		return nil, err
	}

	srv.metrics.ObserveRegistration()
	srv.log(ctx).Info("User registered", slog.Int64("userID", registered.ID), slog.String("role", registered.Role.String()))

	output := &usecase.RegisterOutput{User: registered}
	if err := srv.mailer.SendVerificationEmail(ctx, srv.mailMessage(registered, verificationToken)); err != nil {
		srv.log(ctx).Warn("Failed to send verification email", slog.Int64("userID", registered.ID), slog.Any("error", err))
		output.Warnings = append(output.Warnings, warnVerificationMailFailed)
	}
	if srv.authCfg.ExposeDebugTokens {
		output.VerificationToken = verificationToken
	}

	publishAuthEvent(ctx, srv.publisher, srv.logger, service.AuthEventUserRegistered, registered, "")

	return output, nil
}

// Login authenticates local credentials and establishes a session.
func (srv *credentialService) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.SessionOutput, error) {
	email := util.NormalizeEmail(input.Email)
	srv.log(ctx).Debug("Starting user login", slog.String("email", util.MaskEmail(email)))

	user, err := srv.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			srv.metrics.ObserveLogin(loginMethodLocal, service.LoginOutcomeInvalid)

			return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
		}
		srv.metrics.ObserveLogin(loginMethodLocal, service.LoginOutcomeInternalError)

		return nil, errors.Wrap(err, "failed to find user by email")
	}

	ok, err := srv.checkPassword(ctx, user, input.Password)
	if err != nil {
		srv.metrics.ObserveLogin(loginMethodLocal, service.LoginOutcomeInternalError)

		return nil, err
	}
	if !ok {
		srv.metrics.ObserveLogin(loginMethodLocal, service.LoginOutcomeInvalid)
		srv.log(ctx).Warn("Login failed", slog.Int64("userID", user.ID), slog.String("reason", "password mismatch"))

		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
	}

	if err := gateError(user.SessionGate()); err != nil {
		srv.metrics.ObserveLogin(loginMethodLocal, gateOutcome(user.SessionGate()))

		return nil, err
	}

	output, err := srv.session.establish(ctx, user.ID, input.SessionMeta)
	if err != nil {
		srv.metrics.ObserveLogin(loginMethodLocal, outcomeOf(err))

		return nil, errors.Wrap(err, "failed to establish session")
	}

	srv.metrics.ObserveLogin(loginMethodLocal, service.LoginOutcomeSuccess)
	srv.log(ctx).Info("User logged in", slog.Int64("userID", user.ID))
	publishAuthEvent(ctx, srv.publisher, srv.logger, service.AuthEventUserLoggedIn, user, "")

	return output, nil
}

// checkPassword verifies against the stored family. Accounts that also sign in through a
// provider may carry a hash of either family, so they get the VerifyAny fallback.
func (srv *credentialService) checkPassword(ctx context.Context, user *entity.User, password string) (bool, error) {
	if srv.verifier.Verify(user.PasswordHash, password) {
		if srv.verifier.Family(user.PasswordHash) == service.HashFamilyLegacy {
			srv.metrics.ObserveLegacyHashVerified()
		}

		return true, nil
	}

	links, err := srv.socialRepo.ListByUser(ctx, user.ID)
	if err != nil {
		return false, errors.Wrap(err, "failed to list social accounts")
	}
	if len(links) == 0 {
		return false, nil
	}

	return srv.verifier.VerifyAny(user.PasswordHash, password), nil
}

// Refresh rotates the refresh token. The rotation is a compare-and-set, so of two calls
// presenting the same value only one succeeds.
func (srv *credentialService) Refresh(ctx context.Context, input *usecase.RefreshInput) (*usecase.SessionOutput, error) {
	if input.RefreshToken == "" {
		return nil, errors.WithStack(domainerrors.ErrMissingToken)
	}

	output, err := srv.rotate(ctx, input.RefreshToken)
	srv.metrics.ObserveRefresh(err == nil)
	if err != nil {
		srv.log(ctx).Warn("Refresh failed", slog.Any("error", err))

		return nil, err
	}

	return output, nil
}

func (srv *credentialService) rotate(ctx context.Context, current string) (*usecase.SessionOutput, error) {
	record, err := srv.tokenRepo.FindTokenByValue(ctx, current)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, errors.Wrap(domainerrors.ErrInvalidToken, "refresh token not found")
		}

		return nil, errors.Wrap(err, "failed to find refresh token")
	}
	if !record.IsValid || record.User == nil {
		return nil, errors.Wrap(domainerrors.ErrInvalidToken, "refresh token revoked")
	}
	if srv.session.expired(record) {
		return nil, errors.Wrap(domainerrors.ErrInvalidToken, "refresh token expired")
	}
	if record.User.Blacklisted {
		return nil, errors.WithStack(domainerrors.ErrUserBanned)
	}

	next, err := srv.issuer.IssueRefreshToken()
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrTokenIssueFailed, err.Error())
	}

	err = srv.tokenRepo.UpdateToken(ctx, record.ID, entity.TokenPatch{
		RefreshToken:       &next,
		ExpectRefreshToken: &current,
	})
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, errors.Wrap(domainerrors.ErrInvalidToken, "refresh token already rotated")
		}

		return nil, errors.Wrap(err, "failed to rotate refresh token")
	}

	claims := entity.NewTokenUser(record.User)
	accessToken, err := srv.issuer.IssueAccessToken(claims)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrTokenIssueFailed, err.Error())
	}

	return &usecase.SessionOutput{
		User:         claims,
		AccessToken:  accessToken,
		RefreshToken: next,
	}, nil
}

// Logout invalidates every record holding the refresh token. A missing or unknown token is not an error.
func (srv *credentialService) Logout(ctx context.Context, input *usecase.LogoutInput) error {
	if input.RefreshToken == "" {
		return nil
	}

	n, err := srv.tokenRepo.InvalidateTokensByValue(ctx, input.RefreshToken)
	if err != nil {
		return errors.Wrap(err, "failed to invalidate refresh token")
	}

	srv.log(ctx).Info("Logged out", slog.Int64("invalidated", n))

	return nil
}

// ForgotPassword stores a single-use reset token on the user and mails it.
func (srv *credentialService) ForgotPassword(ctx context.Context, input *usecase.ForgotPasswordInput) (*usecase.ForgotPasswordOutput, error) {
	user, err := srv.findUserByEmail(ctx, input.Email, domainerrors.ErrUserNotFound)
	if err != nil {
		return nil, err
	}

	resetToken, err := util.RandomHex(oneTimeTokenBytes)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrTokenIssueFailed, err.Error())
	}
	expiresAt := srv.now().Add(srv.authCfg.ResetTokenTTL)

	if err := srv.userRepo.SetPasswordResetToken(ctx, user.ID, resetToken, expiresAt); err != nil {
		return nil, errors.Wrap(err, "failed to store reset token")
	}

	output := &usecase.ForgotPasswordOutput{}
	if err := srv.mailer.SendPasswordResetEmail(ctx, srv.mailMessage(user, resetToken)); err != nil {
		srv.log(ctx).Warn("Failed to send password reset email", slog.Int64("userID", user.ID), slog.Any("error", err))
		output.Warnings = append(output.Warnings, warnResetMailFailed)
	}
	if srv.authCfg.ExposeDebugTokens {
		output.ResetToken = resetToken
	}

	return output, nil
}

// ResetPassword redeems a reset token. The token check, the new hash and the cleared token
// are one conditional write, so a token is redeemed at most once.
func (srv *credentialService) ResetPassword(ctx context.Context, input *usecase.ResetPasswordInput) error {
	user, err := srv.findUserByEmail(ctx, input.Email, domainerrors.ErrUserNotFound)
	if err != nil {
		return err
	}

	if !tokenMatches(user.PasswordToken, input.Token) {
		return errors.WithStack(domainerrors.ErrInvalidResetToken)
	}
	if user.PasswordTokenExpiresAt == nil || !srv.now().Before(*user.PasswordTokenExpiresAt) {
		return errors.WithStack(domainerrors.ErrResetTokenExpired)
	}

	passwordHash, err := srv.verifier.Hash(input.Password)
	if err != nil {
		return errors.Wrap(domainerrors.ErrPasswordHashFailed, err.Error())
	}

	err = srv.userRepo.RedeemPasswordResetToken(ctx, user.ID, input.Token, passwordHash, srv.now())
	if err != nil {
		if errors.Is(err, repository.ErrUserStateChanged) {
			return errors.WithStack(domainerrors.ErrInvalidResetToken)
		}

		return errors.Wrap(err, "failed to reset password")
	}

	srv.log(ctx).Info("Password reset", slog.Int64("userID", user.ID))

	return nil
}

// UpdatePassword changes the password of an authenticated user after checking the old one.
func (srv *credentialService) UpdatePassword(ctx context.Context, input *usecase.UpdatePasswordInput) error {
	if input.NewPassword != input.ConfirmPassword {
		return errors.WithStack(domainerrors.ErrPasswordMismatch)
	}

	user, err := srv.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return errors.WithStack(domainerrors.ErrUserNotFound)
		}

		return errors.Wrap(err, "failed to find user")
	}

	if !srv.verifier.Verify(user.PasswordHash, input.OldPassword) {
		return domainerrors.ErrInvalidCredentials.WrapMessage("old password is incorrect")
	}

	passwordHash, err := srv.verifier.Hash(input.NewPassword)
	if err != nil {
		return errors.Wrap(domainerrors.ErrPasswordHashFailed, err.Error())
	}

	if err := srv.userRepo.ReplacePassword(ctx, user.ID, user.PasswordHash, passwordHash); err != nil {
		if errors.Is(err, repository.ErrUserStateChanged) {
			return domainerrors.ErrInvalidCredentials.WrapMessage("password was changed concurrently")
		}

		return errors.Wrap(err, "failed to update password")
	}

	srv.log(ctx).Info("Password updated", slog.Int64("userID", user.ID))

	return nil
}

// VerifyEmail marks the account verified when the mailed token matches.
func (srv *credentialService) VerifyEmail(ctx context.Context, input *usecase.VerifyEmailInput) error {
	user, err := srv.findUserByEmail(ctx, input.Email, domainerrors.ErrVerificationFailed)
	if err != nil {
		return err
	}

	if !tokenMatches(user.VerificationToken, input.Token) {
		return errors.WithStack(domainerrors.ErrVerificationFailed)
	}

	if err := srv.userRepo.ConsumeVerificationToken(ctx, user.ID, input.Token, srv.now()); err != nil {
		if errors.Is(err, repository.ErrUserStateChanged) {
			return errors.WithStack(domainerrors.ErrVerificationFailed)
		}

		return errors.Wrap(err, "failed to verify email")
	}

	srv.log(ctx).Info("Email verified", slog.Int64("userID", user.ID))

	return nil
}

// Me returns the claims of the authenticated principal.
func (srv *credentialService) Me(_ context.Context, principal entity.TokenUser) (*entity.TokenUser, error) {
	return &principal, nil
}

func (srv *credentialService) findUserByEmail(ctx context.Context, email string, notFound *domainerrors.BaseError) (*entity.User, error) {
	user, err := srv.userRepo.FindByEmail(ctx, util.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errors.WithStack(notFound)
		}

		return nil, errors.Wrap(err, "failed to find user by email")
	}

	return user, nil
}

func (srv *credentialService) mailMessage(user *entity.User, token string) service.MailMessage {
	return service.MailMessage{
		Email:     user.Email,
		Token:     token,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Origin:    srv.origin,
	}
}

// tokenMatches compares a presented one-time token with the stored one in constant time.
func tokenMatches(stored *string, presented string) bool {
	if stored == nil || *stored == "" || presented == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(*stored), []byte(presented)) == 1
}

func gateOutcome(gate entity.SessionGate) string {
	switch gate {
	case entity.GateEmailNotVerified:
		return service.LoginOutcomeNotVerified
	case entity.GateBanned:
		return service.LoginOutcomeBanned
	default:
		return service.LoginOutcomeSuccess
	}
}

// outcomeOf classifies a session establishment failure for metrics.
func outcomeOf(err error) string {
	switch {
	case errors.Is(err, domainerrors.ErrEmailNotVerified):
		return service.LoginOutcomeNotVerified
	case errors.Is(err, domainerrors.ErrUserBanned):
		return service.LoginOutcomeBanned
	default:
		return service.LoginOutcomeInternalError
	}
}
