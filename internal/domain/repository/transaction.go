package repository

import "context"

// TransactionManager runs fn inside one database transaction. A non-nil error
// from fn rolls back, nil commits.
type TransactionManager interface {
	Execute(ctx context.Context, fn func(tx TxRepositories) error) error
}

// TxRepositories are bound to the open transaction and must not escape fn.
type TxRepositories interface {
	Users() UserRepository
	Tokens() TokenRepository
	SocialAccounts() SocialAccountRepository
}
