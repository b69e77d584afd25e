package impl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.uber.org/fx"

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
	placeholderPhonePrefix   = "social-"
	placeholderPhoneBytes    = 6
	placeholderPhoneAttempts = 5
	placeholderEmailDomain   = "social.invalid"
	socialPasswordBytes      = 32
)

// federationService implements the FederationUsecase interface.
type federationService struct {
	txManager  repository.TransactionManager
	userRepo   repository.UserRepository
	socialRepo repository.SocialAccountRepository
	verifier   service.CredentialVerifier
	providers  service.IdentityProviderRegistry
	states     service.OAuthStateStore
	publisher  service.EventPublisher
	metrics    service.AuthMetrics
	session    *sessionEstablisher
	logger     *slog.Logger
	now        func() time.Time
}

// FederationServiceParams holds dependencies for FederationService, injected by Fx.
type FederationServiceParams struct {
	fx.In

	TxManager  repository.TransactionManager
	UserRepo   repository.UserRepository
	SocialRepo repository.SocialAccountRepository
	Verifier   service.CredentialVerifier
	Issuer     service.TokenIssuer
	Providers  service.IdentityProviderRegistry
	States     service.OAuthStateStore
	Publisher  service.EventPublisher
	Metrics    service.AuthMetrics
	Logger     *slog.Logger
}

// NewFederationService is the constructor for federationService.
func NewFederationService(params FederationServiceParams) usecase.FederationUsecase {
	return newFederationService(params)
}

func newFederationService(params FederationServiceParams) *federationService {
	return &federationService{
		txManager:  params.TxManager,
		userRepo:   params.UserRepo,
		socialRepo: params.SocialRepo,
		verifier:   params.Verifier,
		providers:  params.Providers,
		states:     params.States,
		publisher:  params.Publisher,
		metrics:    params.Metrics,
		session:    newSessionEstablisher(params.TxManager, params.Issuer, params.Logger),
		logger:     params.Logger,
		now:        time.Now,
	}
}

func (srv *federationService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

func (srv *federationService) provider(name entity.ProviderType) (service.IdentityProvider, error) {
	if !name.IsValid() {
		return nil, errors.WithStack(domainerrors.ErrUnsupportedProvider)
	}

	idp, ok := srv.providers.Get(name)
	if !ok {
		return nil, domainerrors.ErrUnsupportedProvider.WrapMessage(fmt.Sprintf("provider %s is not configured", name))
	}

	return idp, nil
}

// AuthorizationURL starts the code flow and remembers its state and PKCE verifier.
func (srv *federationService) AuthorizationURL(_ context.Context, name entity.ProviderType) (*usecase.AuthorizationOutput, error) {
	idp, err := srv.provider(name)
	if err != nil {
		return nil, err
	}

	state, verifier, err := srv.states.Issue(name)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue oauth state")
	}

	return &usecase.AuthorizationOutput{
		URL:   idp.AuthCodeURL(state, verifier),
		State: state,
	}, nil
}

// Callback redeems the state, exchanges the code and resolves the profile to a session.
func (srv *federationService) Callback(ctx context.Context, input *usecase.SocialCallbackInput) (*usecase.SessionOutput, error) {
	idp, err := srv.provider(input.Provider)
	if err != nil {
		return nil, err
	}

	verifier, ok := srv.states.Consume(input.Provider, input.State)
	if !ok {
		return nil, errors.WithStack(domainerrors.ErrOAuthStateInvalid)
	}
	if input.Code == "" {
		return nil, domainerrors.ErrOAuthFailed.WrapMessage("authorization code missing")
	}

	profile, err := idp.ExchangeCode(ctx, input.Code, verifier)
	if err != nil {
		srv.log(ctx).Warn("Code exchange failed", slog.String("provider", input.Provider.String()), slog.Any("error", err))
		srv.metrics.ObserveLogin(input.Provider.String(), service.LoginOutcomeInternalError)

		return nil, errors.Wrap(domainerrors.ErrOAuthFailed, err.Error())
	}

	return srv.Resolve(ctx, profile, input.SessionMeta)
}

// Resolve finds the account of an external identity, linking or creating it as needed, and
// establishes a session for it.
func (srv *federationService) Resolve(ctx context.Context, profile *service.ProviderProfile, meta usecase.SessionMeta) (*usecase.SessionOutput, error) {
	if profile == nil || profile.ProviderID == "" || !profile.Provider.IsValid() {
		return nil, domainerrors.ErrOAuthFailed.WrapMessage("provider profile is incomplete")
	}
	method := profile.Provider.String()

	email := util.NormalizeEmail(profile.Email)
	if email == "" {
		email = placeholderEmail(profile)
	}

	user, err := srv.findOrCreate(ctx, profile, email)
	if err != nil {
		srv.metrics.ObserveLogin(method, service.LoginOutcomeInternalError)

		return nil, err
	}

	if err := gateError(user.SessionGate()); err != nil {
		srv.metrics.ObserveLogin(method, gateOutcome(user.SessionGate()))

		return nil, err
	}

	output, err := srv.session.establish(ctx, user.ID, meta)
	if err != nil {
		srv.metrics.ObserveLogin(method, outcomeOf(err))

		return nil, errors.Wrap(err, "failed to establish session")
	}

	srv.metrics.ObserveLogin(method, service.LoginOutcomeSuccess)
	srv.log(ctx).Info("Social login", slog.Int64("userID", user.ID), slog.String("provider", method))
	publishAuthEvent(ctx, srv.publisher, srv.logger, service.AuthEventSocialLogin, user, profile.Provider)

	return output, nil
}

// findOrCreate retries the lookup once when a concurrent callback created the account first.
func (srv *federationService) findOrCreate(ctx context.Context, profile *service.ProviderProfile, email string) (*entity.User, error) {
	user, err := srv.lookup(ctx, profile, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	user, err = srv.createSocialUser(ctx, profile, email)
	if errors.IsAny(err, repository.ErrUserAlreadyExists, repository.ErrSocialAccountExists) {
		srv.log(ctx).Debug("Account created concurrently, retrying lookup", slog.String("provider", profile.Provider.String()))

		return srv.lookup(ctx, profile, email)
	}
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.WithStack(domainerrors.ErrAccountCreationFailed)
	}

	return user, nil
}

// lookup returns the user linked to the identity or owning the email, linking the provider
// to the latter.
func (srv *federationService) lookup(ctx context.Context, profile *service.ProviderProfile, email string) (*entity.User, error) {
	user, err := srv.userRepo.FindByProviderOrEmail(ctx, profile.Provider, profile.ProviderID, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, err
		}

		return nil, errors.Wrap(err, "failed to find user by provider or email")
	}

	if err := srv.ensureLink(ctx, user.ID, profile); err != nil {
		return nil, err
	}

	return user, nil
}

// ensureLink creates the SocialAccount for the provider unless the user already has one.
func (srv *federationService) ensureLink(ctx context.Context, userID int64, profile *service.ProviderProfile) error {
	_, err := srv.socialRepo.FindByUserAndProvider(ctx, userID, profile.Provider)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrSocialAccountNotFound) {
		return errors.Wrap(err, "failed to find social account")
	}

	err = srv.socialRepo.Create(ctx, &entity.SocialAccount{
		Provider:   profile.Provider,
		ProviderID: profile.ProviderID,
		UserID:     userID,
	})
	if err != nil && !errors.Is(err, repository.ErrSocialAccountExists) {
		return errors.Wrap(err, "failed to link social account")
	}

	srv.log(ctx).Info("Linked social account", slog.Int64("userID", userID), slog.String("provider", profile.Provider.String()))

	return nil
}

// createSocialUser creates a verified account with an unusable random password and links it
// to the identity in one transaction.
func (srv *federationService) createSocialUser(ctx context.Context, profile *service.ProviderProfile, email string) (*entity.User, error) {
	randomPassword, err := util.RandomHex(socialPasswordBytes)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrAccountCreationFailed, err.Error())
	}
	passwordHash, err := srv.verifier.Hash(randomPassword)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrAccountCreationFailed, err.Error())
	}

	var created *entity.User
	err = srv.txManager.Execute(ctx, func(tx repository.TxRepositories) error {
		userRepo := tx.Users()
		socialRepo := tx.SocialAccounts()

		phone, err := uniquePlaceholderPhone(ctx, userRepo)
		if err != nil {
			return err
		}

		verifiedAt := srv.now()
		user := &entity.User{
			FirstName:    profile.FirstName,
			LastName:     profile.LastName,
			Email:        email,
			PasswordHash: passwordHash,
			Phone:        phone,
			Image:        profile.AvatarURL,
			Notification: true,
			Role:         entity.RoleUser,
			IsVerified:   true,
			VerifiedAt:   &verifiedAt,
		}
		if err := userRepo.Create(ctx, user); err != nil {
			return errors.Wrap(err, "failed to create social user")
		}

		if err := socialRepo.Create(ctx, &entity.SocialAccount{
			Provider:   profile.Provider,
			ProviderID: profile.ProviderID,
			UserID:     user.ID,
		}); err != nil {
			return errors.Wrap(err, "failed to create social account")
		}
		created = user

		return nil
	})
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Created account from social login",
		slog.Int64("userID", created.ID),
		slog.String("provider", profile.Provider.String()),
	)

	return created, nil
}

func uniquePlaceholderPhone(ctx context.Context, userRepo repository.UserRepository) (string, error) {
	for range placeholderPhoneAttempts {
		suffix, err := util.RandomHex(placeholderPhoneBytes)
		if err != nil {
			return "", errors.Wrap(domainerrors.ErrAccountCreationFailed, err.Error())
		}

		phone := placeholderPhonePrefix + suffix
		taken, err := userRepo.ExistsByPhone(ctx, phone)
		if err != nil {
			return "", errors.Wrap(err, "failed to check placeholder phone")
		}
		if !taken {
			return phone, nil
		}
	}

	return "", domainerrors.ErrAccountCreationFailed.WrapMessage("no free placeholder phone")
}

// placeholderEmail stands in for providers that do not disclose an address, e.g. twitter.
func placeholderEmail(profile *service.ProviderProfile) string {
	return fmt.Sprintf("%s_%s@%s", profile.Provider, profile.ProviderID, placeholderEmailDomain)
}
