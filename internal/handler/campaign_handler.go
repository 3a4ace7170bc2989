package handler

import (
	"net/http"

	"bulksender/internal/service"
)

// CampaignHandler handles HTTP requests for campaign operations
type CampaignHandler struct {
	campaignService *service.CampaignService
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(campaignService *service.CampaignService) *CampaignHandler {
	return &CampaignHandler{
		campaignService: campaignService,
	}
}

// Send handles POST /campaigns/send - starts a campaign in the background
func (h *CampaignHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req service.SendCampaignRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cfg, err := h.campaignService.BuildConfig(r.Context(), &req)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	result, err := h.campaignService.StartCampaign(r.Context(), cfg)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	// Return 202 Accepted; progress is polled from /campaigns/current
	WriteJSON(w, http.StatusAccepted, result)
}

// Current handles GET /campaigns/current - progress of the running or last campaign
func (h *CampaignHandler) Current(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.campaignService.CurrentCampaign()
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteOK(w, snapshot)
}

// Cancel handles POST /campaigns/current/cancel - stops the running campaign after the row in flight
func (h *CampaignHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.campaignService.CancelCampaign(); err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}
