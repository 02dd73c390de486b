package main

import (
	"context"
	"log/slog"

	"github.com/ErlanBelekov/accounts/config"
	"github.com/ErlanBelekov/accounts/internal/oauth"
)

// newProviders registers every provider with credentials. A provider that
// fails discovery is skipped so sign-in through the others keeps working.
func newProviders(ctx context.Context, cfg *config.Config, logger *slog.Logger) *oauth.Registry {
	var providers []oauth.Provider
	if cfg.GitHubClientID != "" {
		providers = append(providers, oauth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret))
	}
	if cfg.GoogleClientID != "" {
		google, err := oauth.NewGoogleProvider(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret)
		if err != nil {
			logger.Warn("google provider disabled", "error", err)
		} else {
			providers = append(providers, google)
		}
	}
	return oauth.NewRegistry(providers...)
}
