package bootstrap

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/wolfman30/clinicops/internal/config"
	"github.com/wolfman30/clinicops/internal/notify"
	"github.com/wolfman30/clinicops/pkg/logging"
)

// BuildEmailSender selects the reminder email provider from EMAIL_PROVIDER.
// It falls back to the stub sender when the chosen provider is not
// configured and reports which provider was used and why.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (notify.EmailSender, string, string) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		return notify.NewStubEmailSender(logger), "stub", "missing config"
	}

	switch cfg.EmailProvider {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
			Host:      cfg.SendGridHost,
		}, logger)
		if sender == nil {
			return notify.NewStubEmailSender(logger), "stub", "SENDGRID_API_KEY not set"
		}
		return sender, "sendgrid", ""
	case "ses":
		if awsCfg == nil || cfg.SESFromEmail == "" {
			return notify.NewStubEmailSender(logger), "stub", "SES_FROM_EMAIL not set"
		}
		return notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger), "ses", ""
	case "stub":
		return notify.NewStubEmailSender(logger), "stub", ""
	default:
		return notify.NewStubEmailSender(logger), "stub", "unknown EMAIL_PROVIDER " + cfg.EmailProvider
	}
}

// BuildReminderChannel wraps the selected email sender with SMS fallback.
// SMS delivery is provided by the external messaging service, so a stub
// stands in here.
func BuildReminderChannel(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (*notify.ReminderChannel, string) {
	if logger == nil {
		logger = logging.Default()
	}
	email, provider, reason := BuildEmailSender(cfg, awsCfg, logger)
	if reason != "" {
		logger.Warn("reminder email provider fallback", "provider", provider, "reason", reason)
	}
	return notify.NewReminderChannel(email, notify.NewStubSMSSender(logger), logger), provider
}
