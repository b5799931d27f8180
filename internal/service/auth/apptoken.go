package auth

import (
	"context"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"crosslister/internal/integrations/ebay"
)

const taxonomyScope = "https://api.ebay.com/oauth/api_scope"

// AppSource mints application tokens via the client-credentials grant.
// The taxonomy endpoints accept these, so category refreshes work even
// before any seller account is authorized.
func AppSource(ctx context.Context, appID, certID, tokenURL string) ebay.TokenSource {
	cfg := clientcredentials.Config{
		ClientID:     appID,
		ClientSecret: certID,
		TokenURL:     tokenURL,
		Scopes:       []string{taxonomyScope},
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	return appSource{ts: cfg.TokenSource(ctx)}
}

type appSource struct {
	ts oauth2.TokenSource
}

func (s appSource) AccessToken(ctx context.Context) (string, error) {
	tok, err := s.ts.Token()
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}
