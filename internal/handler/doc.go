// Package handler implements the HTTP API of the netpanel backend.
//
// # Handlers
//
// NetworkHandler serves the active configuration (panel state and intnet
// membership) and the snapshot collection, including JSON/YAML export and
// import.
//
// PresetHandler lists presets from the preset directory and previews a
// preset against the stored machine inventory.
//
// MachineHandler serves the machine inventory on /vm, keyed by machine uuid.
//
// AuthHandler exchanges credentials for bearer tokens on POST /token.
//
// # Errors
//
// Service errors are mapped to status codes through the domain sentinels:
// ErrNotFound is 404, ErrConflict 409, ErrInvalid 400, ErrUnauthorized 401
// and ErrForbidden 403. A failing preset run is 422. Error bodies have the
// {error, details} shape.
//
// # Middleware
//
// NewRouter wraps the mux with Recover, Metrics, CORS, Logger and BodyLimit.
// RequireAuth guards every /network and /vm route when an auth manager is
// configured.
package handler
