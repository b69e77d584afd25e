package service

import "context"

// MailMessage carries what a transactional mail needs to render its link.
type MailMessage struct {
	Email     string
	Token     string
	FirstName string
	LastName  string
	Origin    string // Frontend base URL, e.g. https://campus.example.edu
}

// Mailer sends account mails.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, msg MailMessage) error
	SendPasswordResetEmail(ctx context.Context, msg MailMessage) error
}
