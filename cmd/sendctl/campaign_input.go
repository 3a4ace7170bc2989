package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"bulksender/internal/config"
	"bulksender/internal/models"
	"bulksender/internal/repository"
	"bulksender/internal/rowsource"
)

// campaignFlags are the flags shared by send and preview
type campaignFlags struct {
	campaignFile string
	csvPath      string
	table        string
	orderBy      string
	column       string
	template     string
	delay        int
	parseNumbers bool
	dateLayouts  []string
}

func (f *campaignFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.campaignFile, "campaign", "c", "", "YAML campaign file")
	flags.StringVar(&f.csvPath, "csv", "", "CSV file with a header row")
	flags.StringVar(&f.table, "table", "", "database table holding the contacts")
	flags.StringVar(&f.orderBy, "order-by", "", "column that orders the table rows")
	flags.StringVar(&f.column, "column", "", "column holding the destination phone number")
	flags.StringVarP(&f.template, "template", "t", "", "message template with {Column} placeholders")
	flags.IntVarP(&f.delay, "delay", "d", 0, "seconds to wait between rows")
	flags.BoolVar(&f.parseNumbers, "parse-numbers", false, "treat numeric CSV cells as numbers")
	flags.StringSliceVar(&f.dateLayouts, "date-layout", nil, "Go time layout used to recognise CSV date cells")

	cmd.MarkFlagsMutuallyExclusive("csv", "table")
	cmd.MarkFlagsMutuallyExclusive("campaign", "csv")
	cmd.MarkFlagsMutuallyExclusive("campaign", "table")
}

// campaignInput is a fully resolved campaign before rows are loaded
type campaignInput struct {
	source       config.SourceSpec
	targetColumn string
	template     string
	delaySeconds int
}

// resolve merges the campaign file (if any) with the command-line flags.
// Flags given explicitly win over the file.
func (f *campaignFlags) resolve(cmd *cobra.Command, defaultDelay int) (*campaignInput, error) {
	in := &campaignInput{delaySeconds: defaultDelay}

	if f.campaignFile != "" {
		file, err := config.LoadCampaignFile(f.campaignFile)
		if err != nil {
			return nil, err
		}
		in.source = file.Source
		in.targetColumn = file.TargetColumn
		in.template = file.Template
		in.delaySeconds = file.Delay(defaultDelay)
	} else {
		in.source = config.SourceSpec{
			CSV:         f.csvPath,
			Table:       f.table,
			OrderBy:     f.orderBy,
			ParseNumber: f.parseNumbers,
			DateLayouts: f.dateLayouts,
		}
	}

	changed := cmd.Flags().Changed
	if changed("column") {
		in.targetColumn = f.column
	}
	if changed("template") {
		in.template = f.template
	}
	if changed("delay") {
		in.delaySeconds = f.delay
	}

	if in.source.CSV == "" && in.source.Table == "" {
		return nil, fmt.Errorf("one of --campaign, --csv or --table is required")
	}
	if in.targetColumn == "" {
		return nil, fmt.Errorf("--column is required")
	}
	if in.template == "" {
		return nil, fmt.Errorf("--template is required")
	}
	return in, nil
}

// loadRows materializes the campaign rows. contacts may be nil for CSV sources.
func (in *campaignInput) loadRows(ctx context.Context, contacts repository.ContactRepository) ([]models.Row, error) {
	if in.source.CSV != "" {
		table, err := rowsource.LoadCSVFile(in.source.CSV, rowsource.Options{
			ParseNumbers: in.source.ParseNumber,
			DateLayouts:  in.source.DateLayouts,
		})
		if err != nil {
			return nil, err
		}
		return table.Rows, nil
	}

	if contacts == nil {
		return nil, fmt.Errorf("--table needs a database: set POSTGRES_HOST")
	}
	return contacts.LoadRows(ctx, in.source.Table, in.source.OrderBy)
}
