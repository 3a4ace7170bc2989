package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bulksender/internal/app"
	"bulksender/internal/models"
	"bulksender/internal/service"
)

var (
	sendFlags     campaignFlags
	sendTransport string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Connect the messaging session and send a campaign",
	Long: `Connects the messaging session (printing the QR code to scan when one is
needed), waits until it is ready, then sends one message per row.

Rows without a phone number are reported as failed and skipped. A failed send
never stops the campaign. Ctrl-C stops after the message in flight.

Examples:
  sendctl send --csv contacts.csv --column Phone --template "Hi {Name}" --delay 5
  sendctl send --campaign spring.yaml
  sendctl send --table contacts --order-by id --column phone -t "Hello {first_name}"`,
	Args: cobra.NoArgs,
	RunE: runSend,
}

func init() {
	sendFlags.register(sendCmd)
	sendCmd.Flags().StringVar(&sendTransport, "transport", "", "transport to send through: simulator or amqp (default from TRANSPORT)")
}

func runSend(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(sendTransport)
	if err != nil {
		return err
	}

	in, err := sendFlags.resolve(cmd, cfg.Campaign.DefaultDelaySeconds)
	if err != nil {
		return err
	}

	rt, err := app.Open(cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	rows, err := in.loadRows(ctx, rt.Contacts())
	if err != nil {
		return err
	}

	out := newPrinter(cmd.OutOrStdout())
	sessions := service.NewSessionService(rt.ClientFactory(), out, cfg.Session.ReadyTimeout, log.Named("session"))
	campaigns := service.NewCampaignService(
		sessions,
		service.NewTemplateService(cfg.Campaign.DateLayout),
		nil,
		nil,
		service.CampaignOptions{
			AddressSuffix:       cfg.Session.AddressSuffix,
			DefaultDelaySeconds: cfg.Campaign.DefaultDelaySeconds,
			MaxDelaySeconds:     cfg.Campaign.MaxDelaySeconds,
		},
		log.Named("campaign"),
		service.NewLogSink(log.Named("progress")),
	)

	campaign := &models.CampaignConfig{
		Rows:         rows,
		TargetColumn: in.targetColumn,
		Template:     in.template,
		DelaySeconds: in.delaySeconds,
	}
	if err := campaigns.ValidateConfig(campaign); err != nil {
		return err
	}

	out.printf("Connecting %s session...\n", cfg.Session.Transport)
	if err := sessions.ConnectAndWait(ctx); err != nil {
		return err
	}
	defer func() {
		if err := sessions.Disconnect(); err != nil {
			log.Warn("disconnect failed", zap.Error(err))
		}
	}()

	out.printf("Sending %d rows, %ds apart.\n\n", len(rows), in.delaySeconds)
	result, err := campaigns.RunCampaign(ctx, campaign, out)
	if err != nil {
		return err
	}

	if result.Failed > 0 && result.Success == 0 && result.Total > 0 {
		return fmt.Errorf("no message was sent")
	}
	return nil
}
