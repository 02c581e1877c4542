// Package light defines the in-memory device records and registry for
// Houm Bridge.
//
// A Light is a passive state holder for one remote-controlled light:
// identity, capability kind (binary or dimmable), protocol tag, display
// name, and live on/brightness state. Writes flow through a non-owning
// Commander handle back to the controller; displayed-state changes are
// reported through the Notifier collaborator interface.
//
// The Registry is a process-lifetime map of id to Light. It is owned by
// the controller, populated by discovery reconciliation, and never
// removes records.
//
// # Invariants
//
//   - brightness > 0 implies on; brightness == 0 implies off. Every
//     write path (commands, push updates, reconciliation) maintains this.
//   - Identity fields never change after creation; only live state is
//     overwritten by later snapshots.
//
// Thread Safety: all Light and Registry methods are safe for concurrent
// use.
package light
