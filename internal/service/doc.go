// Package service implements the business logic of the netpanel backend.
//
// Services coordinate between the HTTP handlers and the repository layer,
// applying validation and publishing events.
//
// # Services
//
// NetworkService owns the active configuration (panel state and intnet
// membership) and the snapshot collection.
//
// PresetService serves the presets found in the preset directory and
// previews a preset against the current machine inventory.
//
// MachineService manages the machine inventory reported by the hypervisor
// layer, seeded from an inventory file.
//
// # Event System
//
// Every mutation is published on the EventBus; the server forwards events
// to connected clients via Server-Sent Events.
package service
