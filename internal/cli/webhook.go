package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewWebhookCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Manage the Bot API webhook registration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "set",
		Short:         "Register https://$RENDER_EXTERNAL_HOSTNAME/telegram_webhook with the secret token",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, zapLogger, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			defer zapLogger.Sync()

			if cfg.Webhook.ExternalHost == "" || cfg.Webhook.Secret == "" {
				return fmt.Errorf("RENDER_EXTERNAL_HOSTNAME and WEBHOOK_SECRET are required to register the webhook")
			}
			if err := newTelegramClient(cfg).SetWebhook(cmd.Context(), cfg.WebhookURL(), cfg.Webhook.Secret); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "webhook set to %s\n", cfg.WebhookURL())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "delete",
		Short:         "Remove the webhook so the bot can poll",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, zapLogger, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			defer zapLogger.Sync()

			if err := newTelegramClient(cfg).DeleteWebhook(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "webhook deleted")
			return nil
		},
	})

	return cmd
}
