package handler

import (
	"bytes"
	"fmt"
	"log"
	"net/http"

	"netpanel/internal/domain"
	"netpanel/internal/service"
)

// NetworkHandler serves the active configuration and the snapshots
type NetworkHandler struct {
	svc *service.NetworkService
}

// NewNetworkHandler creates a new network handler
func NewNetworkHandler(svc *service.NetworkService) *NetworkHandler {
	return &NetworkHandler{svc: svc}
}

// CreateSnapshotRequest is the body of POST /network/snapshot. Deletable
// defaults to true when omitted.
type CreateSnapshotRequest struct {
	UUID      string              `json:"uuid,omitempty"`
	Name      string              `json:"name"`
	Deletable *bool               `json:"deletable,omitempty"`
	Nodes     []domain.Node       `json:"nodes"`
	Intnets   domain.IntnetConfig `json:"intnets"`
	Viewport  *domain.Viewport    `json:"viewport,omitempty"`
}

func (req CreateSnapshotRequest) snapshot() *domain.Snapshot {
	deletable := true
	if req.Deletable != nil {
		deletable = *req.Deletable
	}
	intnets := req.Intnets
	if intnets == nil {
		intnets = make(domain.IntnetConfig)
	}
	return &domain.Snapshot{
		UUID:      req.UUID,
		Name:      req.Name,
		Deletable: deletable,
		Nodes:     req.Nodes,
		Intnets:   intnets,
		Viewport:  req.Viewport,
	}
}

// GetConfiguration returns the active configuration
func (h *NetworkHandler) GetConfiguration(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.svc.Configuration(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to get configuration", err)
		return
	}
	writeJSON(w, cfg, http.StatusOK)
}

// PutPanelState stores the canvas layout
func (h *NetworkHandler) PutPanelState(w http.ResponseWriter, r *http.Request) {
	var state domain.PanelState
	if err := decodeJSON(r, &state); err != nil {
		writeServiceError(w, "Invalid request body", err)
		return
	}

	if err := h.svc.SavePanelState(r.Context(), state); err != nil {
		writeServiceError(w, "Failed to save panel state", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PutIntnets stores the intnet membership
func (h *NetworkHandler) PutIntnets(w http.ResponseWriter, r *http.Request) {
	var intnets domain.IntnetConfig
	if err := decodeJSON(r, &intnets); err != nil {
		writeServiceError(w, "Invalid request body", err)
		return
	}
	if intnets == nil {
		intnets = make(domain.IntnetConfig)
	}

	if err := h.svc.ApplyIntnets(r.Context(), intnets); err != nil {
		writeServiceError(w, "Failed to apply intnets", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSnapshots returns every snapshot
func (h *NetworkHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	snapshots, err := h.svc.ListSnapshots(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to list snapshots", err)
		return
	}
	if snapshots == nil {
		snapshots = []domain.Snapshot{}
	}
	writeJSON(w, snapshots, http.StatusOK)
}

// GetSnapshot returns a single snapshot
func (h *NetworkHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.svc.GetSnapshot(r.Context(), r.PathValue("uuid"))
	if err != nil {
		writeServiceError(w, "Failed to get snapshot", err)
		return
	}
	writeJSON(w, snapshot, http.StatusOK)
}

// CreateSnapshot stores a new snapshot
func (h *NetworkHandler) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	var req CreateSnapshotRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, "Invalid request body", err)
		return
	}

	created, err := h.svc.CreateSnapshot(r.Context(), req.snapshot())
	if err != nil {
		writeServiceError(w, "Failed to create snapshot", err)
		return
	}
	writeJSON(w, created, http.StatusCreated)
}

// RenameSnapshot changes a snapshot name
func (h *NetworkHandler) RenameSnapshot(w http.ResponseWriter, r *http.Request) {
	var req domain.RenameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, "Invalid request body", err)
		return
	}

	renamed, err := h.svc.RenameSnapshot(r.Context(), r.PathValue("uuid"), req)
	if err != nil {
		writeServiceError(w, "Failed to rename snapshot", err)
		return
	}
	writeJSON(w, renamed, http.StatusOK)
}

// DeleteSnapshot removes a deletable snapshot
func (h *NetworkHandler) DeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteSnapshot(r.Context(), r.PathValue("uuid")); err != nil {
		writeServiceError(w, "Failed to delete snapshot", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportSnapshot downloads a snapshot as JSON (default) or YAML
func (h *NetworkHandler) ExportSnapshot(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	id := r.PathValue("uuid")

	var buf bytes.Buffer
	if err := h.svc.ExportSnapshot(r.Context(), id, format, &buf); err != nil {
		writeServiceError(w, "Failed to export snapshot", err)
		return
	}

	w.Header().Set("Content-Type", contentTypeFor(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=snapshot-%s.%s", id, format))
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("Failed to write snapshot export: %v", err)
	}
}

// ImportSnapshot stores an uploaded snapshot document as a new snapshot
func (h *NetworkHandler) ImportSnapshot(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	created, err := h.svc.ImportSnapshot(r.Context(), r.Body, format)
	if err != nil {
		writeServiceError(w, "Failed to import snapshot", err)
		return
	}
	writeJSON(w, created, http.StatusCreated)
}
