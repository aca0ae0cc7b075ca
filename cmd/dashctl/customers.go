package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/GTDGit/gtd_dashboard/pkg/dashboard"
)

func newCustomersCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "customers",
		Short: "List, import and export customers",
	}
	cmd.AddCommand(
		newCustomersListCommand(a),
		newCustomersImportCommand(a),
		newCustomersExportCommand(a),
	)
	return cmd
}

func newCustomersListCommand(a *app) *cobra.Command {
	var opts dashboard.ListOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List customers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout())
			defer cancel()

			customers, meta, err := c.ListCustomers(ctx, opts)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPHONE")
			for _, cu := range customers {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", cu.ID, cu.FullName(), cu.Email, cu.Phone)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if meta != nil {
				fmt.Fprintf(a.out, "page %d/%d, %d customers\n", meta.Page, meta.TotalPages, meta.TotalItems)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.Search, "search", "s", "", "Search by name, email or phone")
	cmd.Flags().IntVarP(&opts.Page, "page", "p", 1, "Page number")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "l", 20, "Page size (max 100)")
	return cmd
}

func newCustomersImportCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv|file.json|file.xlsx>",
		Short: "Bulk import customers from a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout())
			defer cancel()

			res, err := c.ImportCustomers(ctx, filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "imported %d, skipped %d\n", res.Imported, res.Skipped)
			for _, e := range res.Errors {
				fmt.Fprintf(a.out, "  row %d: %s\n", e.Row, e.Message)
			}
			return nil
		},
	}
}

func newCustomersExportCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export customers to CSV and print the download link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout())
			defer cancel()

			link, err := c.ExportCustomers(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%d rows exported, link valid until %s\n%s\n",
				link.Rows, link.ExpiresAt.Format("2006-01-02 15:04:05 MST"), link.URL)
			return nil
		},
	}
}
