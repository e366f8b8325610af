package handler

import (
	"log"
	"net/http"

	"netpanel/internal/domain"
	"netpanel/internal/service"
)

// PresetHandler serves the presets of the preset directory
type PresetHandler struct {
	svc *service.PresetService
}

// NewPresetHandler creates a new preset handler
func NewPresetHandler(svc *service.PresetService) *PresetHandler {
	return &PresetHandler{svc: svc}
}

// PreviewResponse is the topology a preset would produce
type PreviewResponse struct {
	Nodes     []domain.Node       `json:"nodes"`
	Intnets   domain.IntnetConfig `json:"intnets"`
	Edges     []domain.Edge       `json:"edges"`
	MaxNumber int                 `json:"max_number"`
}

// ListPresets returns the preset summaries
func (h *PresetHandler) ListPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.List(), http.StatusOK)
}

// GetPreset returns a full preset
func (h *PresetHandler) GetPreset(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.PathValue("uuid"))
	if err != nil {
		writeServiceError(w, "Failed to get preset", err)
		return
	}
	writeJSON(w, p, http.StatusOK)
}

// PreviewPreset evaluates a preset against the stored inventory without
// applying it
func (h *PresetHandler) PreviewPreset(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Preview(r.Context(), r.PathValue("uuid"))
	if err != nil {
		writeServiceError(w, "Failed to run preset", err)
		return
	}

	writeJSON(w, PreviewResponse{
		Nodes:     result.Nodes,
		Intnets:   result.Intnets,
		Edges:     result.Edges(),
		MaxNumber: result.MaxNumber,
	}, http.StatusOK)
}

// ReloadResponse lists the presets served after a reload. Files that
// failed to load are reported in Error.
type ReloadResponse struct {
	Presets []domain.PresetSummary `json:"presets"`
	Error   string                 `json:"error,omitempty"`
}

// ReloadPresets re-reads the preset directory
func (h *PresetHandler) ReloadPresets(w http.ResponseWriter, r *http.Request) {
	resp := ReloadResponse{}
	if err := h.svc.Reload(); err != nil {
		log.Printf("Preset reload reported errors: %v", err)
		resp.Error = err.Error()
	}
	resp.Presets = h.svc.List()
	writeJSON(w, resp, http.StatusOK)
}
