package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newDraftsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Read and write form drafts (invoice_draft, product_draft, selected_customer, cart)",
	}
	cmd.AddCommand(
		newDraftsGetCommand(a),
		newDraftsPutCommand(a),
		newDraftsClearCommand(a),
	)
	return cmd
}

func newDraftsGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <kind>",
		Short: "Print a draft as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout())
			defer cancel()

			d, err := c.GetDraft(ctx, args[0])
			if err != nil {
				return err
			}
			var pretty bytes.Buffer
			if err := json.Indent(&pretty, d.Data, "", "  "); err != nil {
				return fmt.Errorf("draft is not valid JSON: %w", err)
			}
			fmt.Fprintln(a.out, pretty.String())
			return nil
		},
	}
}

func newDraftsPutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "put <kind> <file|->",
		Short: "Store a JSON document as a draft",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}

			var data []byte
			if args[1] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[1])
			}
			if err != nil {
				return fmt.Errorf("failed to read draft: %w", err)
			}
			if !json.Valid(data) {
				return errors.New("draft must be a JSON document")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout())
			defer cancel()

			d, err := c.SaveDraft(ctx, args[0], data)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "saved %s at %s\n", d.Kind, d.SavedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}

func newDraftsClearCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <kind>",
		Short: "Delete a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout())
			defer cancel()

			if err := c.ClearDraft(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "cleared %s\n", args[0])
			return nil
		},
	}
}
