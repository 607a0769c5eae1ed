// Package tree holds the entity tree and the per-attribute reconciliation
// engine. The tree mirrors the store namespace below the owfs prefix: hex
// family codes contain hex device ids, device ids contain attribute
// configuration, and non-hex top-level segments hold gateway records.
//
// Configuration updates from the store and presence events from the bus
// backend both converge here: each flows into the affected Attribute's
// reconcile step, which keeps exactly one store-to-device watcher and one
// device-to-store polling registration alive per configured attribute.
package tree
