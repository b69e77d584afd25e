package oauth

import (
	"context"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"campus/config"
	"campus/internal/domain/entity"
	"campus/internal/domain/service"
	"campus/internal/util"
)

const (
	githubUserURL   = "https://api.github.com/user"
	githubEmailsURL = "https://api.github.com/user/emails"
)

var githubDefaultScopes = []string{"user:email"}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// NewGitHubProvider builds the GitHub provider. The display name is split on spaces; users with
// a private email get their primary verified address from the emails endpoint.
func NewGitHubProvider(cfg *config.OAuthProviderConfig, opts ...Option) service.IdentityProvider {
	o := applyOptions(opts)

	userURL := o.profileURL
	if userURL == "" {
		userURL = githubUserURL
	}
	emailsURL := o.emailsURL
	if emailsURL == "" {
		emailsURL = githubEmailsURL
	}

	return &codeFlowProvider{
		name:   entity.ProviderGitHub,
		config: newOAuth2Config(cfg, github.Endpoint, githubDefaultScopes, o),
		fetch: func(ctx context.Context, client *http.Client, _ *oauth2.Token) (*service.ProviderProfile, error) {
			var user githubUser
			if err := getJSON(ctx, client, userURL, &user); err != nil {
				return nil, err
			}

			email := user.Email
			if email == "" {
				var emails []githubEmail
				if err := getJSON(ctx, client, emailsURL, &emails); err != nil {
					return nil, err
				}
				email = primaryGitHubEmail(emails)
			}

			name := user.Name
			if name == "" {
				name = user.Login
			}
			first, last := util.SplitName(name)

			profile := &service.ProviderProfile{
				Email:     email,
				FirstName: first,
				LastName:  last,
				AvatarURL: user.AvatarURL,
			}
			if user.ID != 0 {
				profile.ProviderID = strconv.FormatInt(user.ID, 10)
			}

			return profile, nil
		},
	}
}

func primaryGitHubEmail(emails []githubEmail) string {
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email
		}
	}

	return ""
}
