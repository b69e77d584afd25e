package oauth

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"

	"campus/config"
	"campus/internal/domain/entity"
	"campus/internal/domain/service"
	"campus/internal/util"
)

const twitterProfileURL = "https://api.twitter.com/2/users/me?user.fields=profile_image_url"

var (
	twitterEndpoint = oauth2.Endpoint{
		AuthURL:   "https://twitter.com/i/oauth2/authorize",
		TokenURL:  "https://api.twitter.com/2/oauth2/token",
		AuthStyle: oauth2.AuthStyleInHeader,
	}
	twitterDefaultScopes = []string{"tweet.read", "users.read", "offline.access"}
)

type twitterUser struct {
	Data struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		Username        string `json:"username"`
		ProfileImageURL string `json:"profile_image_url"`
	} `json:"data"`
}

// NewTwitterProvider builds the Twitter (X) provider. Its API exposes no email address, so
// profiles come back with an empty Email.
func NewTwitterProvider(cfg *config.OAuthProviderConfig, opts ...Option) service.IdentityProvider {
	o := applyOptions(opts)

	profileURL := o.profileURL
	if profileURL == "" {
		profileURL = twitterProfileURL
	}

	return &codeFlowProvider{
		name:   entity.ProviderTwitter,
		config: newOAuth2Config(cfg, twitterEndpoint, twitterDefaultScopes, o),
		fetch: func(ctx context.Context, client *http.Client, _ *oauth2.Token) (*service.ProviderProfile, error) {
			var user twitterUser
			if err := getJSON(ctx, client, profileURL, &user); err != nil {
				return nil, err
			}

			name := user.Data.Name
			if name == "" {
				name = user.Data.Username
			}
			first, last := util.SplitName(name)

			return &service.ProviderProfile{
				ProviderID: user.Data.ID,
				FirstName:  first,
				LastName:   last,
				AvatarURL:  user.Data.ProfileImageURL,
			}, nil
		},
	}
}
