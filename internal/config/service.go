package config

import "time"

type ServiceConfig struct {
	Name                string        `yaml:"name"`
	Environment         string        `yaml:"environment"`
	Version             string        `yaml:"version"`
	ClientURL           string        `yaml:"client_url" validate:"required"`
	StripeSecretKey     string        `yaml:"stripe_secret_key" validate:"required"`
	StripeWebhookSecret string        `yaml:"stripe_webhook_secret" validate:"required"`
	JWTSecret           string        `yaml:"jwt_secret" validate:"required"`
	AdminRole           string        `yaml:"admin_role"`
	RequiredPriceID     string        `yaml:"required_price_id"`
	CheckoutRetryCount  int           `yaml:"checkout_retry_count"`
	CheckoutRetryDelay  time.Duration `yaml:"checkout_retry_delay"`
	Discord             DiscordConfig `yaml:"discord"`
}

type DiscordConfig struct {
	BotToken              string `yaml:"bot_token"`
	GuildID               string `yaml:"guild_id"`
	MemberRoleID          string `yaml:"member_role_id"`
	NotificationChannelID string `yaml:"notification_channel_id"`
}
