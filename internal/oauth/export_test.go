package oauth

import "golang.org/x/oauth2"

// NewGitHubProviderAt points the provider at a fake GitHub.
func NewGitHubProviderAt(baseURL string) *GitHubProvider {
	p := NewGitHubProvider("client-id", "client-secret")
	p.oauth2Config.Endpoint = oauth2.Endpoint{
		AuthURL:   baseURL + "/login/oauth/authorize",
		TokenURL:  baseURL + "/login/oauth/access_token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	p.apiURL = baseURL
	return p
}

var UsernameFrom = usernameFrom
