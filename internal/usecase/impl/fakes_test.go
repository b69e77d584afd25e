package impl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"campus/config"
	"campus/internal/domain/entity"
	"campus/internal/domain/repository"
	"campus/internal/domain/service"
	"campus/internal/errors"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig() *config.Config {
	return &config.Config{
		Auth: &config.AuthConfig{
			AccessTokenTTL:    15 * time.Minute,
			RefreshTokenTTL:   7 * 24 * time.Hour,
			ResetTokenTTL:     10 * time.Minute,
			RefreshTokenBytes: config.MinRefreshTokenBytes,
		},
		Mail: &config.MailConfig{Origin: "https://campus.test"},
	}
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// --- in-memory persistence ---

type memStore struct {
	mu      sync.Mutex
	clock   *testClock
	nextID  int64
	users   map[int64]*entity.User
	tokens  map[int64]*entity.Token
	socials map[int64]*entity.SocialAccount

	// ops records ordering-sensitive repository calls.
	ops []string
	// afterUserRead runs once, outside the store lock, after the next FindByID or FindByEmail.
	afterUserRead func()
}

func newMemStore(clock *testClock) *memStore {
	return &memStore{
		clock:   clock,
		users:   make(map[int64]*entity.User),
		tokens:  make(map[int64]*entity.Token),
		socials: make(map[int64]*entity.SocialAccount),
	}
}

type memSnapshot struct {
	nextID  int64
	users   map[int64]entity.User
	tokens  map[int64]entity.Token
	socials map[int64]entity.SocialAccount
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := memSnapshot{
		nextID:  s.nextID,
		users:   make(map[int64]entity.User, len(s.users)),
		tokens:  make(map[int64]entity.Token, len(s.tokens)),
		socials: make(map[int64]entity.SocialAccount, len(s.socials)),
	}
	for id, u := range s.users {
		snap.users[id] = *u
	}
	for id, t := range s.tokens {
		snap.tokens[id] = *t
	}
	for id, a := range s.socials {
		snap.socials[id] = *a
	}

	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID = snap.nextID
	s.users = make(map[int64]*entity.User, len(snap.users))
	for id, u := range snap.users {
		s.users[id] = &u
	}
	s.tokens = make(map[int64]*entity.Token, len(snap.tokens))
	for id, t := range snap.tokens {
		s.tokens[id] = &t
	}
	s.socials = make(map[int64]*entity.SocialAccount, len(snap.socials))
	for id, a := range snap.socials {
		s.socials[id] = &a
	}
}

func (s *memStore) record(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, op)
}

func (s *memStore) recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.ops...)
}

func (s *memStore) userRead() {
	s.mu.Lock()
	hook := s.afterUserRead
	s.afterUserRead = nil
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
}

// patchUser applies fn to the stored row when cond accepts it.
func (s *memStore) patchUser(id int64, cond func(*entity.User) bool, noMatch error, fn func(*entity.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok || (cond != nil && !cond(u)) {
		return noMatch
	}
	fn(u)
	u.UpdatedAt = s.clock.Now()

	return nil
}

func (s *memStore) id() int64 {
	s.nextID++

	return s.nextID
}

func (s *memStore) userCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.users)
}

func (s *memStore) tokenRows() []entity.Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]entity.Token, 0, len(s.tokens))
	for _, t := range s.tokens {
		rows = append(rows, *t)
	}

	return rows
}

func (s *memStore) socialRows() []entity.SocialAccount {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]entity.SocialAccount, 0, len(s.socials))
	for _, a := range s.socials {
		rows = append(rows, *a)
	}

	return rows
}

func (s *memStore) user(id int64) *entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil
	}
	copied := *u

	return &copied
}

// seedUser inserts a user directly, bypassing registration.
func (s *memStore) seedUser(u entity.User) *entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	u.ID = s.id()
	u.CreatedAt = s.clock.Now()
	u.UpdatedAt = u.CreatedAt
	s.users[u.ID] = &u
	copied := u

	return &copied
}

type memTxManager struct {
	mu    sync.Mutex
	store *memStore
}

// Execute serialises transactions, which covers the row locks the services rely on, and
// rolls back on error.
func (tm *memTxManager) Execute(_ context.Context, fn func(repository.TxRepositories) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snap := tm.store.snapshot()
	if err := fn(&memTxRepos{store: tm.store}); err != nil {
		tm.store.restore(snap)

		return err
	}

	return nil
}

type memTxRepos struct {
	store *memStore
}

func (f *memTxRepos) Users() repository.UserRepository {
	return &memUserRepo{store: f.store}
}

func (f *memTxRepos) Tokens() repository.TokenRepository {
	return &memTokenRepo{store: f.store}
}

func (f *memTxRepos) SocialAccounts() repository.SocialAccountRepository {
	return &memSocialRepo{store: f.store}
}

type memUserRepo struct {
	store *memStore
}

func (r *memUserRepo) FindByID(_ context.Context, id int64) (*entity.User, error) {
	defer r.store.userRead()

	if u := r.store.user(id); u != nil {
		return u, nil
	}

	return nil, repository.ErrUserNotFound
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	defer r.store.userRead()

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, u := range r.store.users {
		if u.Email == email {
			copied := *u

			return &copied, nil
		}
	}

	return nil, repository.ErrUserNotFound
}

func (r *memUserRepo) FindByProviderOrEmail(ctx context.Context, provider entity.ProviderType, providerID, email string) (*entity.User, error) {
	r.store.mu.Lock()
	var linked int64
	for _, a := range r.store.socials {
		if a.Provider == provider && a.ProviderID == providerID {
			linked = a.UserID
		}
	}
	r.store.mu.Unlock()

	if linked != 0 {
		return r.FindByID(ctx, linked)
	}
	if email == "" {
		return nil, repository.ErrUserNotFound
	}

	return r.FindByEmail(ctx, email)
}

func (r *memUserRepo) Count(_ context.Context) (int64, error) {
	r.store.record("count")

	return int64(r.store.userCount()), nil
}

func (r *memUserRepo) ExistsByPhone(_ context.Context, phone string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, u := range r.store.users {
		if u.Phone == phone {
			return true, nil
		}
	}

	return false, nil
}

func (r *memUserRepo) LockByID(ctx context.Context, id int64) (*entity.User, error) {
	return r.FindByID(ctx, id)
}

func (r *memUserRepo) Create(_ context.Context, user *entity.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, u := range r.store.users {
		if u.Email == user.Email || u.Phone == user.Phone {
			return errors.Wrap(repository.ErrUserAlreadyExists, "email or phone already exists")
		}
	}

	user.ID = r.store.id()
	user.CreatedAt = r.store.clock.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	r.store.users[user.ID] = &copied

	return nil
}

func (r *memUserRepo) LockRegistrations(_ context.Context) error {
	r.store.record("lock-registrations")

	return nil
}

func (r *memUserRepo) SetPasswordResetToken(_ context.Context, id int64, token string, expiresAt time.Time) error {
	return r.store.patchUser(id, nil, repository.ErrUserNotFound, func(u *entity.User) {
		u.PasswordToken = &token
		u.PasswordTokenExpiresAt = &expiresAt
	})
}

func (r *memUserRepo) RedeemPasswordResetToken(_ context.Context, id int64, token, passwordHash string, now time.Time) error {
	cond := func(u *entity.User) bool {
		return u.PasswordToken != nil && *u.PasswordToken == token &&
			u.PasswordTokenExpiresAt != nil && u.PasswordTokenExpiresAt.After(now)
	}

	return r.store.patchUser(id, cond, repository.ErrUserStateChanged, func(u *entity.User) {
		u.PasswordHash = passwordHash
		u.PasswordToken = nil
		u.PasswordTokenExpiresAt = nil
	})
}

func (r *memUserRepo) ReplacePassword(_ context.Context, id int64, currentHash, newHash string) error {
	cond := func(u *entity.User) bool { return u.PasswordHash == currentHash }

	return r.store.patchUser(id, cond, repository.ErrUserStateChanged, func(u *entity.User) {
		u.PasswordHash = newHash
	})
}

func (r *memUserRepo) ConsumeVerificationToken(_ context.Context, id int64, token string, verifiedAt time.Time) error {
	cond := func(u *entity.User) bool { return u.VerificationToken != nil && *u.VerificationToken == token }

	return r.store.patchUser(id, cond, repository.ErrUserStateChanged, func(u *entity.User) {
		u.IsVerified = true
		u.VerifiedAt = &verifiedAt
		u.VerificationToken = nil
	})
}

func (r *memUserRepo) SetBlacklisted(_ context.Context, id int64, blacklisted bool) error {
	return r.store.patchUser(id, nil, repository.ErrUserNotFound, func(u *entity.User) {
		u.Blacklisted = blacklisted
	})
}

type memTokenRepo struct {
	store *memStore
}

func (r *memTokenRepo) FindTokenByUser(_ context.Context, userID int64) (*entity.Token, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var latest *entity.Token
	for _, t := range r.store.tokens {
		if t.UserID == userID && (latest == nil || t.ID > latest.ID) {
			latest = t
		}
	}
	if latest == nil {
		return nil, repository.ErrTokenNotFound
	}
	copied := *latest

	return &copied, nil
}

func (r *memTokenRepo) FindTokenByValue(_ context.Context, value string) (*entity.Token, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, t := range r.store.tokens {
		if t.RefreshToken == value {
			copied := *t
			if u, ok := r.store.users[t.UserID]; ok {
				owner := *u
				copied.User = &owner
			}

			return &copied, nil
		}
	}

	return nil, repository.ErrTokenNotFound
}

func (r *memTokenRepo) CreateToken(_ context.Context, token *entity.Token) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	token.ID = r.store.id()
	token.CreatedAt = r.store.clock.Now()
	token.UpdatedAt = token.CreatedAt
	copied := *token
	copied.User = nil
	r.store.tokens[token.ID] = &copied

	return nil
}

func (r *memTokenRepo) UpdateToken(_ context.Context, id int64, patch entity.TokenPatch) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	t, ok := r.store.tokens[id]
	if !ok {
		return repository.ErrTokenNotFound
	}
	if patch.ExpectRefreshToken != nil && (t.RefreshToken != *patch.ExpectRefreshToken || !t.IsValid) {
		return repository.ErrTokenNotFound
	}
	if patch.RefreshToken != nil {
		t.RefreshToken = *patch.RefreshToken
	}
	if patch.IsValid != nil {
		t.IsValid = *patch.IsValid
	}
	t.UpdatedAt = r.store.clock.Now()

	return nil
}

func (r *memTokenRepo) InvalidateTokensByValue(_ context.Context, value string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var n int64
	for _, t := range r.store.tokens {
		if t.RefreshToken == value && t.IsValid {
			t.IsValid = false
			n++
		}
	}

	return n, nil
}

type memSocialRepo struct {
	store *memStore
}

func (r *memSocialRepo) FindByProvider(_ context.Context, provider entity.ProviderType, providerID string) (*entity.SocialAccount, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, a := range r.store.socials {
		if a.Provider == provider && a.ProviderID == providerID {
			copied := *a

			return &copied, nil
		}
	}

	return nil, repository.ErrSocialAccountNotFound
}

func (r *memSocialRepo) FindByUserAndProvider(_ context.Context, userID int64, provider entity.ProviderType) (*entity.SocialAccount, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, a := range r.store.socials {
		if a.UserID == userID && a.Provider == provider {
			copied := *a

			return &copied, nil
		}
	}

	return nil, repository.ErrSocialAccountNotFound
}

func (r *memSocialRepo) ListByUser(_ context.Context, userID int64) ([]*entity.SocialAccount, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []*entity.SocialAccount
	for _, a := range r.store.socials {
		if a.UserID == userID {
			copied := *a
			out = append(out, &copied)
		}
	}

	return out, nil
}

func (r *memSocialRepo) Create(_ context.Context, account *entity.SocialAccount) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, a := range r.store.socials {
		if (a.Provider == account.Provider && a.ProviderID == account.ProviderID) ||
			(a.UserID == account.UserID && a.Provider == account.Provider) {
			return errors.Wrap(repository.ErrSocialAccountExists, "social account already linked")
		}
	}

	account.ID = r.store.id()
	account.CreatedAt = r.store.clock.Now()
	copied := *account
	r.store.socials[account.ID] = &copied

	return nil
}

// --- domain service fakes ---

const (
	fakeCurrentPrefix = "$argon2id$fake$"
	fakeLegacyPrefix  = "$2b$fake$"
)

// fakeVerifier stores the plaintext behind a family prefix so tests can reason about families.
type fakeVerifier struct{}

func (fakeVerifier) Hash(plain string) (string, error) {
	return fakeCurrentPrefix + plain, nil
}

func (fakeVerifier) Verify(stored, plain string) bool {
	switch service.FamilyOf(stored) {
	case service.HashFamilyLegacy:
		return strings.HasPrefix(stored, fakeLegacyPrefix) && stored == fakeLegacyPrefix+plain
	default:
		return strings.HasPrefix(stored, fakeCurrentPrefix) && stored == fakeCurrentPrefix+plain
	}
}

func (v fakeVerifier) VerifyAny(stored, plain string) bool {
	return stored == fakeCurrentPrefix+plain || stored == fakeLegacyPrefix+plain
}

func (fakeVerifier) Family(stored string) service.HashFamily {
	return service.FamilyOf(stored)
}

type fakeIssuer struct {
	mu      sync.Mutex
	refresh int
	access  int
}

func (i *fakeIssuer) IssueAccessToken(user entity.TokenUser) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.access++

	return fmt.Sprintf("at-%d-user-%d", i.access, user.UserID), nil
}

func (i *fakeIssuer) ParseAccessToken(string) (*service.AccessClaims, error) {
	return nil, errors.New("not implemented")
}

func (i *fakeIssuer) IssueRefreshToken() (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.refresh++

	return fmt.Sprintf("rt-%d", i.refresh), nil
}

func (i *fakeIssuer) AccessTokenTTL() time.Duration  { return 15 * time.Minute }
func (i *fakeIssuer) RefreshTokenTTL() time.Duration { return 7 * 24 * time.Hour }

type recordingMailer struct {
	mu           sync.Mutex
	err          error
	verification []service.MailMessage
	reset        []service.MailMessage
}

func (m *recordingMailer) SendVerificationEmail(_ context.Context, msg service.MailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verification = append(m.verification, msg)

	return m.err
}

func (m *recordingMailer) SendPasswordResetEmail(_ context.Context, msg service.MailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset = append(m.reset, msg)

	return m.err
}

func (m *recordingMailer) lastVerification() service.MailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.verification[len(m.verification)-1]
}

func (m *recordingMailer) lastReset() service.MailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.reset[len(m.reset)-1]
}

type recordingPublisher struct {
	mu     sync.Mutex
	err    error
	events []service.AuthEvent
}

func (p *recordingPublisher) PublishAuthEvent(_ context.Context, event *service.AuthEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *event)

	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}

	return out
}

type countingMetrics struct {
	mu            sync.Mutex
	logins        map[string]int
	refreshes     map[bool]int
	registrations int
	legacy        int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{logins: make(map[string]int), refreshes: make(map[bool]int)}
}

func (m *countingMetrics) ObserveLogin(method, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins[method+"/"+outcome]++
}

func (m *countingMetrics) ObserveRefresh(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshes[success]++
}

func (m *countingMetrics) ObserveRegistration() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registrations++
}

func (m *countingMetrics) ObserveLegacyHashVerified() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.legacy++
}

func (m *countingMetrics) login(method, outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.logins[method+"/"+outcome]
}

type fakeProvider struct {
	name    entity.ProviderType
	profile *service.ProviderProfile
	err     error

	mu        sync.Mutex
	verifiers []string
}

func (p *fakeProvider) Name() entity.ProviderType { return p.name }

func (p *fakeProvider) AuthCodeURL(state, verifier string) string {
	return fmt.Sprintf("https://%s.test/authorize?state=%s&challenge_of=%s", p.name, state, verifier)
}

func (p *fakeProvider) ExchangeCode(_ context.Context, _ string, verifier string) (*service.ProviderProfile, error) {
	p.mu.Lock()
	p.verifiers = append(p.verifiers, verifier)
	p.mu.Unlock()

	if p.err != nil {
		return nil, p.err
	}
	copied := *p.profile

	return &copied, nil
}

type fakeRegistry map[entity.ProviderType]service.IdentityProvider

func (r fakeRegistry) Get(name entity.ProviderType) (service.IdentityProvider, bool) {
	idp, ok := r[name]

	return idp, ok
}

type fakeStateStore struct {
	mu      sync.Mutex
	counter int
	states  map[string]entity.ProviderType
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{states: make(map[string]entity.ProviderType)}
}

func (s *fakeStateStore) Issue(provider entity.ProviderType) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	state := fmt.Sprintf("state-%d", s.counter)
	s.states[state] = provider

	return state, "verifier-" + state, nil
}

func (s *fakeStateStore) Consume(provider entity.ProviderType, state string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.states[state]
	if !ok || owner != provider {
		return "", false
	}
	delete(s.states, state)

	return "verifier-" + state, true
}

