package oauth

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"

	"campus/config"
	"campus/internal/domain/entity"
	"campus/internal/domain/service"
)

const facebookProfileURL = "https://graph.facebook.com/me?fields=id,first_name,last_name,email,picture.type(large)"

var facebookDefaultScopes = []string{"email", "public_profile"}

type facebookUser struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Picture   struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

// NewFacebookProvider builds the Facebook provider on the Graph API profile fields.
func NewFacebookProvider(cfg *config.OAuthProviderConfig, opts ...Option) service.IdentityProvider {
	o := applyOptions(opts)

	profileURL := o.profileURL
	if profileURL == "" {
		profileURL = facebookProfileURL
	}

	return &codeFlowProvider{
		name:   entity.ProviderFacebook,
		config: newOAuth2Config(cfg, facebook.Endpoint, facebookDefaultScopes, o),
		fetch: func(ctx context.Context, client *http.Client, _ *oauth2.Token) (*service.ProviderProfile, error) {
			var user facebookUser
			if err := getJSON(ctx, client, profileURL, &user); err != nil {
				return nil, err
			}

			return &service.ProviderProfile{
				ProviderID: user.ID,
				Email:      user.Email,
				FirstName:  user.FirstName,
				LastName:   user.LastName,
				AvatarURL:  user.Picture.Data.URL,
			}, nil
		},
	}
}
