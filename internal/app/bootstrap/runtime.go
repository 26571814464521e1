// Package bootstrap builds the optional runtime dependencies of the API
// server from configuration. Every builder returns nil when its integration
// is not configured so main can wire the result straight through.
package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/aurelie-dev/salon-booking/internal/config"
	"github.com/aurelie-dev/salon-booking/internal/gcal"
	"github.com/aurelie-dev/salon-booking/internal/notify"
	"github.com/aurelie-dev/salon-booking/internal/policy"
	"github.com/aurelie-dev/salon-booking/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available, slot caching disabled", "error", err)
		return nil
	}
	return client
}

// BuildCalendarClient returns the Google Calendar client or nil when the
// integration is disabled. A misconfigured calendar is a startup error, not
// a silent downgrade.
func BuildCalendarClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*gcal.Client, error) {
	if cfg == nil || !cfg.CalendarEnabled {
		return nil, nil
	}
	return gcal.New(ctx, gcal.Config{
		CredentialsJSON: []byte(cfg.CalendarCredentialsJSON),
		CalendarID:      cfg.CalendarID,
		CallTimeout:     cfg.CalendarFetchTimeout,
	}, logger)
}

// BuildEmailSender picks the configured sender: SendGrid when an API key is
// set, otherwise SES when a from-address is set, otherwise a stub that only
// logs. sesClient may be nil when SES is not configured.
func BuildEmailSender(cfg *appconfig.Config, sesClient *sesv2.Client, logger *logging.Logger) notify.EmailSender {
	if cfg == nil {
		return notify.NewStubEmailSender(logger)
	}
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		return sg
	}
	if sesClient != nil && strings.TrimSpace(cfg.SESFromEmail) != "" {
		return notify.NewSESSender(sesClient, notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
	}
	return notify.NewStubEmailSender(logger)
}

// DefaultPolicySettings maps the environment schedule defaults to the wire
// form used to seed the policy store on first boot.
func DefaultPolicySettings(cfg *appconfig.Config) policy.Settings {
	breaks := make([]policy.BreakWindow, 0, len(cfg.Breaks))
	for _, b := range cfg.Breaks {
		start, end, ok := strings.Cut(b, "-")
		if !ok {
			continue
		}
		breaks = append(breaks, policy.BreakWindow{Start: strings.TrimSpace(start), End: strings.TrimSpace(end)})
	}
	return policy.Settings{
		Open:                cfg.OpenTime,
		Close:               cfg.CloseTime,
		SlotIntervalMinutes: cfg.SlotIntervalMinutes,
		DaysOff:             cfg.DaysOff,
		Breaks:              breaks,
		Timezone:            cfg.Timezone,
	}
}
