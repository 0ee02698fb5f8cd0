package main

import (
	"encoding/json"
	"sort"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/ownage/approvedeny-go"
)

func (c *cli) cmdGetRequest() *cobra.Command {
	return &cobra.Command{
		Use:   "get-request <check-request-id>",
		Short: "Print a check request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.client()
			if err != nil {
				return err
			}
			c.logger.Debug("Fetching check request", "check_request_id", args[0])
			doc, err := client.GetCheckRequest(cmd.Context(), args[0])
			if err != nil {
				return errors.Wrap(err, "get check request")
			}
			return printDocument(cmd.OutOrStdout(), doc)
		},
	}
}

func (c *cli) cmdGetResponse() *cobra.Command {
	return &cobra.Command{
		Use:   "get-response <check-request-id>",
		Short: "Print the response recorded for a check request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.client()
			if err != nil {
				return err
			}
			c.logger.Debug("Fetching check request response", "check_request_id", args[0])
			doc, err := client.GetCheckRequestResponse(cmd.Context(), args[0])
			if err != nil {
				return errors.Wrap(err, "get check request response")
			}
			return printDocument(cmd.OutOrStdout(), doc)
		},
	}
}

func (c *cli) cmdCreateRequest() *cobra.Command {
	var (
		source      payloadSource
		description string
		metadata    map[string]string
	)
	cmd := &cobra.Command{
		Use:   "create-request <check-id>",
		Short: "Create a check request",
		Long: "Create a check request from --payload/--payload-file, or from " +
			"--description and --metadata when no payload is given.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := source.read(cmd.InOrStdin())
			if err != nil {
				return err
			}

			var payload any
			switch {
			case raw != nil:
				if !json.Valid(raw) {
					return errors.New("payload is not valid JSON")
				}
				payload = json.RawMessage(raw)
			case description != "":
				payload = buildPayload(description, metadata)
			default:
				return errors.New("either --payload, --payload-file or --description is required")
			}

			client, err := c.client()
			if err != nil {
				return err
			}
			c.logger.Debug("Creating check request", "check_id", args[0])
			doc, err := client.CreateCheckRequest(cmd.Context(), args[0], payload)
			if err != nil {
				return errors.Wrap(err, "create check request")
			}
			return printDocument(cmd.OutOrStdout(), doc)
		},
	}
	source.register(cmd.Flags())
	cmd.Flags().StringVar(&description, "description", "", "description of the check request")
	cmd.Flags().StringToStringVar(&metadata, "metadata", nil, "metadata key=value pairs")
	return cmd
}

// buildPayload lays out the payload as description followed by metadata,
// with metadata keys sorted.
func buildPayload(description string, metadata map[string]string) *approvedeny.WebhookPayload {
	payload := orderedmap.New[string, any]()
	payload.Set("description", description)
	if len(metadata) == 0 {
		return payload
	}

	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	meta := orderedmap.New[string, any]()
	for _, k := range keys {
		meta.Set(k, metadata[k])
	}
	payload.Set("metadata", meta)
	return payload
}
