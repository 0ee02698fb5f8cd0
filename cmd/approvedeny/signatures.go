package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ownage/approvedeny-go"
)

func (c *cli) readWebhookPayload(cmd *cobra.Command, source *payloadSource) (*approvedeny.WebhookPayload, error) {
	raw, err := source.read(cmd.InOrStdin())
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.New("--payload or --payload-file is required")
	}
	payload, err := approvedeny.ParseWebhookPayload(raw)
	return payload, errors.Wrap(err, "parse webhook payload")
}

func (c *cli) cmdSign() *cobra.Command {
	var source payloadSource
	cmd := &cobra.Command{
		Use:     "sign",
		Short:   "Print the webhook signature of a payload",
		Args:    cobra.NoArgs,
		PreRunE: c.bindLocal("encryption-key"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			payload, err := c.readWebhookPayload(cmd, &source)
			if err != nil {
				return err
			}
			signature, err := approvedeny.SignWebhookPayload(c.v.GetString("encryption-key"), payload)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), signature)
			return err
		},
	}
	source.register(cmd.Flags())
	cmd.Flags().String("encryption-key", "", "webhook encryption key ($APPROVEDENY_ENCRYPTION_KEY)")
	return cmd
}

func (c *cli) cmdVerify() *cobra.Command {
	var (
		source    payloadSource
		signature string
	)
	cmd := &cobra.Command{
		Use:     "verify",
		Short:   "Check a webhook signature; exits non-zero when it does not match",
		Args:    cobra.NoArgs,
		PreRunE: c.bindLocal("encryption-key"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			payload, err := c.readWebhookPayload(cmd, &source)
			if err != nil {
				return err
			}
			if err := approvedeny.VerifyWebhookSignature(c.v.GetString("encryption-key"), signature, payload); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return err
		},
	}
	source.register(cmd.Flags())
	cmd.Flags().String("encryption-key", "", "webhook encryption key ($APPROVEDENY_ENCRYPTION_KEY)")
	cmd.Flags().StringVar(&signature, "signature", "", "signature received with the webhook")
	_ = cmd.MarkFlagRequired("signature")
	return cmd
}
