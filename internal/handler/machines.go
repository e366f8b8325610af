package handler

import (
	"bytes"
	"fmt"
	"log"
	"net/http"

	"netpanel/internal/domain"
	"netpanel/internal/service"
)

// MachineHandler serves the machine inventory
type MachineHandler struct {
	svc *service.MachineService
}

// NewMachineHandler creates a new machine handler
func NewMachineHandler(svc *service.MachineService) *MachineHandler {
	return &MachineHandler{svc: svc}
}

// ImportResponse reports how many machines an import stored
type ImportResponse struct {
	Machines int `json:"machines"`
}

// ListNetworkData returns the inventory keyed by machine uuid
func (h *MachineHandler) ListNetworkData(w http.ResponseWriter, r *http.Request) {
	inventory, err := h.svc.Inventory(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to list machines", err)
		return
	}
	writeJSON(w, inventory, http.StatusOK)
}

// GetNetworkData returns a single machine
func (h *MachineHandler) GetNetworkData(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Get(r.Context(), r.PathValue("uuid"))
	if err != nil {
		writeServiceError(w, "Failed to get machine", err)
		return
	}
	writeJSON(w, m, http.StatusOK)
}

// PutNetworkData creates or updates a machine. The uuid of the path wins
// over the body.
func (h *MachineHandler) PutNetworkData(w http.ResponseWriter, r *http.Request) {
	var m domain.Machine
	if err := decodeJSON(r, &m); err != nil {
		writeServiceError(w, "Invalid request body", err)
		return
	}
	id := r.PathValue("uuid")
	if m.UUID != "" && m.UUID != id {
		writeError(w, "Bad Request", fmt.Sprintf("body uuid %s does not match path uuid %s", m.UUID, id), http.StatusBadRequest)
		return
	}
	m.UUID = id

	if err := h.svc.Upsert(r.Context(), &m); err != nil {
		writeServiceError(w, "Failed to store machine", err)
		return
	}
	writeJSON(w, m, http.StatusOK)
}

// DeleteMachine removes a machine from the inventory
func (h *MachineHandler) DeleteMachine(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("uuid")); err != nil {
		writeServiceError(w, "Failed to delete machine", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportInventory downloads the inventory as YAML (default) or an Ansible
// inventory
func (h *MachineHandler) ExportInventory(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "yaml"
	}

	var buf bytes.Buffer
	if err := h.svc.Export(r.Context(), format, &buf); err != nil {
		writeServiceError(w, "Failed to export inventory", err)
		return
	}

	w.Header().Set("Content-Type", contentTypeFor(format))
	w.Header().Set("Content-Disposition", "attachment; filename=inventory.yml")
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("Failed to write inventory export: %v", err)
	}
}

// ImportInventory replaces the inventory with an uploaded document
func (h *MachineHandler) ImportInventory(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "yaml"
	}

	n, err := h.svc.Import(r.Context(), r.Body, format)
	if err != nil {
		writeServiceError(w, "Failed to import inventory", err)
		return
	}
	writeJSON(w, ImportResponse{Machines: n}, http.StatusOK)
}
