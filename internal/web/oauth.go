package web

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/wallysom2/egua-cli/internal/config"
)

const oauthIssuer = "https://accounts.google.com"

// OAuth drives the federated sign-in redirect and code exchange with
// PKCE. Completion is observed at the callback route, never by the
// initiating call.
type OAuth struct {
	config   oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// NewOAuth discovers the provider endpoints. Returns nil (disabled)
// when no client id is configured, so the rest of the web gateway keeps
// working.
func NewOAuth(ctx context.Context, conf config.OAuthConfig) (*OAuth, error) {
	if conf.ClientID == "" {
		return nil, nil
	}

	provider, err := oidc.NewProvider(ctx, oauthIssuer)
	if err != nil {
		return nil, fmt.Errorf("failed to init oidc provider: %w", err)
	}

	return &OAuth{
		config: oauth2.Config{
			ClientID:     conf.ClientID,
			ClientSecret: conf.ClientSecret,
			RedirectURL:  conf.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: conf.ClientID}),
	}, nil
}

// NewVerifier generates a PKCE code verifier for one flow.
func (o *OAuth) NewVerifier() string {
	return oauth2.GenerateVerifier()
}

// AuthCodeURL builds the consent redirect for the given state nonce and
// PKCE verifier.
func (o *OAuth) AuthCodeURL(state, pkceVerifier string) string {
	return o.config.AuthCodeURL(state, oauth2.S256ChallengeOption(pkceVerifier))
}

// Exchange trades the authorization code for a verified raw id_token,
// ready to be exchanged for a backend session.
func (o *OAuth) Exchange(ctx context.Context, code, pkceVerifier string) (string, error) {
	token, err := o.config.Exchange(ctx, code, oauth2.VerifierOption(pkceVerifier))
	if err != nil {
		return "", fmt.Errorf("token exchange failed: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return "", errors.New("provider did not return id_token")
	}

	if _, err := o.verifier.Verify(ctx, rawIDToken); err != nil {
		return "", fmt.Errorf("id_token verification failed: %w", err)
	}

	return rawIDToken, nil
}
