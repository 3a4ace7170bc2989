package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"bulksender/internal/models"
)

// printer writes session events and campaign progress for a human operator
type printer struct {
	mu  sync.Mutex
	out io.Writer
}

func newPrinter(out io.Writer) *printer {
	return &printer{out: out}
}

func (p *printer) printf(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

func (p *printer) OnQRCode(code string) {
	p.printf("Scan this code with the messaging app to log in:\n\n  %s\n\n", code)
}

func (p *printer) OnAuthenticated() { p.printf("Authenticated.\n") }

func (p *printer) OnReady() { p.printf("Session ready.\n") }

func (p *printer) OnAuthFailure(reason string) {
	p.printf("Authentication failed: %s\n", reason)
}

func (p *printer) OnDisconnected(reason string) {
	p.printf("Session disconnected: %s\n", reason)
}

// OnProgress prints terminal notifications only; "sending" would double every line.
func (p *printer) OnProgress(n models.ProgressNotification) {
	switch n.Status {
	case models.ProgressSuccess:
		p.printf("[%d/%d] %s  sent\n", n.Current, n.Total, n.Identifier)
	case models.ProgressFailed:
		p.printf("[%d/%d] %s  FAILED: %s\n", n.Current, n.Total, n.Identifier, n.Error)
	}
}

func (p *printer) OnResult(result *models.CampaignResult) {
	status := "Campaign finished"
	if result.Cancelled {
		status = "Campaign cancelled"
	}
	p.printf("\n%s: %d sent, %d failed, %d total (%s)\n",
		status, result.Success, result.Failed, result.Total,
		result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))
}
