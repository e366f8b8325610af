package handler

import (
	"net/http"

	"netpanel/internal/auth"
	"netpanel/internal/metrics"
	"netpanel/internal/service"
)

// Deps holds what the router serves
type Deps struct {
	Network  *service.NetworkService
	Presets  *service.PresetService
	Machines *service.MachineService

	// Auth guards the /network, /vm and /events routes. Nil disables
	// authentication.
	Auth *auth.Manager

	// Events streams service events, usually the SSE hub
	Events http.Handler

	Metrics        *metrics.Registry
	AllowedOrigins []string
	MaxBodyBytes   int64
}

// NewRouter builds the HTTP handler for the backend API
func NewRouter(d Deps) http.Handler {
	network := NewNetworkHandler(d.Network)
	presets := NewPresetHandler(d.Presets)
	machines := NewMachineHandler(d.Machines)
	login := NewAuthHandler(d.Auth, d.Metrics)

	protected := RequireAuth(d.Auth, auth.PermissionNetwork, d.Metrics)
	guard := func(h http.HandlerFunc) http.Handler {
		return protected(h)
	}

	mux := http.NewServeMux()

	// Network configuration
	mux.Handle("GET /network/configuration", guard(network.GetConfiguration))
	mux.Handle("PUT /network/configuration/panelstate", guard(network.PutPanelState))
	mux.Handle("PUT /network/configuration/intnets", guard(network.PutIntnets))

	// Snapshots
	mux.Handle("GET /network/snapshot/all", guard(network.ListSnapshots))
	mux.Handle("POST /network/snapshot", guard(network.CreateSnapshot))
	mux.Handle("POST /network/snapshot/import", guard(network.ImportSnapshot))
	mux.Handle("GET /network/snapshot/{uuid}", guard(network.GetSnapshot))
	mux.Handle("PATCH /network/snapshot/{uuid}", guard(network.RenameSnapshot))
	mux.Handle("DELETE /network/snapshot/{uuid}", guard(network.DeleteSnapshot))
	mux.Handle("GET /network/snapshot/{uuid}/export", guard(network.ExportSnapshot))

	// Presets
	mux.Handle("GET /network/preset/all", guard(presets.ListPresets))
	mux.Handle("POST /network/preset/reload", guard(presets.ReloadPresets))
	mux.Handle("GET /network/preset/{uuid}", guard(presets.GetPreset))
	mux.Handle("POST /network/preset/{uuid}/preview", guard(presets.PreviewPreset))

	// Machine inventory
	mux.Handle("GET /vm/all/networkdata", guard(machines.ListNetworkData))
	mux.Handle("GET /vm/inventory/export", guard(machines.ExportInventory))
	mux.Handle("POST /vm/inventory/import", guard(machines.ImportInventory))
	mux.Handle("GET /vm/{uuid}/networkdata", guard(machines.GetNetworkData))
	mux.Handle("PUT /vm/{uuid}/networkdata", guard(machines.PutNetworkData))
	mux.Handle("DELETE /vm/{uuid}", guard(machines.DeleteMachine))

	// Auth
	mux.HandleFunc("POST /token", login.Token)
	mux.Handle("GET /user", guard(login.User))

	// Infrastructure
	mux.HandleFunc("GET /healthz", Health)
	if d.Events != nil {
		mux.Handle("GET /events", QueryToken(protected(d.Events)))
	}
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics.Handler())
	}

	limit := d.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}

	return Chain(mux,
		Recover,
		Metrics(d.Metrics),
		CORS(d.AllowedOrigins),
		Logger,
		BodyLimit(limit),
	)
}
