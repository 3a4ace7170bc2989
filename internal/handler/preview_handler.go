package handler

import (
	"net/http"

	"bulksender/internal/service"
)

// PreviewHandler handles HTTP requests for message preview functionality
type PreviewHandler struct {
	campaignService *service.CampaignService
}

// NewPreviewHandler creates a new PreviewHandler instance
func NewPreviewHandler(campaignService *service.CampaignService) *PreviewHandler {
	return &PreviewHandler{
		campaignService: campaignService,
	}
}

// Preview handles POST /campaigns/preview
// It renders a template against one row without sending anything
func (h *PreviewHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req service.PreviewMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.campaignService.PreviewMessage(&req)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteOK(w, result)
}
