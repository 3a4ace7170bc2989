package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bulksender/internal/app"
	"bulksender/internal/models"
	"bulksender/internal/service"
)

var (
	previewFlags campaignFlags
	previewLimit int
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Render the campaign messages without sending anything",
	Long: `Shows, for the first rows of the contact list, the address each message
would go to and the rendered text. Placeholders that match no column are listed
as warnings; they are left as-is in the messages.`,
	Args: cobra.NoArgs,
	RunE: runPreview,
}

func init() {
	previewFlags.register(previewCmd)
	previewCmd.Flags().IntVarP(&previewLimit, "limit", "n", 5, "number of rows to render (0 for all)")
}

func runPreview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig("")
	if err != nil {
		return err
	}

	in, err := previewFlags.resolve(cmd, cfg.Campaign.DefaultDelaySeconds)
	if err != nil {
		return err
	}

	var rows []models.Row
	if in.source.Table != "" {
		rt, err := app.Open(cfg, log)
		if err != nil {
			return err
		}
		defer rt.Close()
		rows, err = in.loadRows(cmd.Context(), rt.Contacts())
		if err != nil {
			return err
		}
	} else {
		rows, err = in.loadRows(cmd.Context(), nil)
		if err != nil {
			return err
		}
	}

	return writePreview(cmd, service.NewTemplateService(cfg.Campaign.DateLayout), cfg.Session.AddressSuffix, in, rows)
}

func writePreview(cmd *cobra.Command, templates *service.TemplateService, suffix string, in *campaignInput, rows []models.Row) error {
	out := cmd.OutOrStdout()

	columns := map[string]bool{}
	for _, row := range rows {
		for _, column := range row.Columns() {
			columns[column] = true
		}
	}
	known := make([]string, 0, len(columns))
	for column := range columns {
		known = append(known, column)
	}
	if unmatched := templates.UnmatchedPlaceholders(in.template, known); len(unmatched) > 0 {
		fmt.Fprintf(out, "warning: no column for placeholder(s) %s\n\n", strings.Join(unmatched, ", "))
	}

	eligible := 0
	for _, row := range rows {
		if service.IsEligible(row, in.targetColumn) {
			eligible++
		}
	}
	fmt.Fprintf(out, "%d rows, %d with a phone number in %q\n\n", len(rows), eligible, in.targetColumn)

	limit := previewLimit
	if limit <= 0 || limit > len(rows) {
		limit = len(rows)
	}
	for _, row := range rows[:limit] {
		if !service.IsEligible(row, in.targetColumn) {
			fmt.Fprintf(out, "#%d  (skipped: %s)\n\n", row.Index+1, models.ReasonNoPhoneNumber)
			continue
		}
		cell, _ := row.Get(in.targetColumn)
		fmt.Fprintf(out, "#%d  %s\n%s\n\n", row.Index+1,
			service.NormalizeIdentifier(cell, suffix),
			templates.Render(in.template, row))
	}
	return nil
}
