package gmail

import (
	"context"
	"fmt"
	"os"

	"bili-archive/domain/notification"
	"bili-archive/infrastructure/drive"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// OAuthConfig holds the configuration for Gmail OAuth 2.0 authentication
type OAuthConfig struct {
	CredentialsFile string // Path to OAuth client credentials JSON
	TokenFile       string // Separate from the Drive token; gmail.send is a different scope
}

// NewClientWithOAuth creates a Gmail client using OAuth 2.0 user authentication
// The token flow (including the browser dance) is shared with the Drive adapter
func NewClientWithOAuth(ctx context.Context, cfg OAuthConfig, from notification.Recipient, opts ...ClientOption) (*Client, error) {
	c := NewClient(from, opts...)
	if c.gmailService != nil {
		return c, nil
	}

	b, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read OAuth credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, gmail.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse OAuth credentials: %w", err)
	}

	token, err := drive.GetToken(ctx, config, cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("unable to get OAuth token: %w", err)
	}

	client := config.Client(ctx, token)
	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create gmail service: %w", err)
	}

	c.gmailService = &GoogleGmailService{service: srv}
	return c, nil
}
