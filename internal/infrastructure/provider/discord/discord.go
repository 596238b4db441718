package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/growthlab/mentorship-backend/internal/config"
	"github.com/growthlab/mentorship-backend/internal/domain/provider"
)

const apiBaseURL = "https://discord.com/api/v10"

// Provider implements provider.CommunityProvider against the Discord
// REST API. Role membership drives paid access in the community; the
// notification channel receives operational messages.
type Provider struct {
	cfg        config.DiscordConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewProvider creates a Discord-backed community provider
func NewProvider(cfg config.DiscordConfig, logger *zap.Logger) *Provider {
	return &Provider{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// GrantMemberRole assigns the paid-member role to a guild member
func (p *Provider) GrantMemberRole(ctx context.Context, memberID string) error {
	url := fmt.Sprintf("%s/guilds/%s/members/%s/roles/%s",
		apiBaseURL, p.cfg.GuildID, memberID, p.cfg.MemberRoleID)
	return p.do(ctx, http.MethodPut, url, nil)
}

// RevokeMemberRole removes the paid-member role from a guild member
func (p *Provider) RevokeMemberRole(ctx context.Context, memberID string) error {
	url := fmt.Sprintf("%s/guilds/%s/members/%s/roles/%s",
		apiBaseURL, p.cfg.GuildID, memberID, p.cfg.MemberRoleID)
	return p.do(ctx, http.MethodDelete, url, nil)
}

// PostNotification posts a message to the operational channel
func (p *Provider) PostNotification(ctx context.Context, message string) error {
	url := fmt.Sprintf("%s/channels/%s/messages", apiBaseURL, p.cfg.NotificationChannelID)
	payload, err := json.Marshal(map[string]string{"content": message})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return p.do(ctx, http.MethodPost, url, payload)
}

func (p *Provider) do(ctx context.Context, method, url string, body []byte) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+p.cfg.BotToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("discord request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		p.logger.Warn("Discord API returned error",
			zap.String("method", method),
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody))
		return fmt.Errorf("discord API error: status %d", resp.StatusCode)
	}

	return nil
}

var _ provider.CommunityProvider = (*Provider)(nil)
