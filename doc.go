// Package cinehub provides the preference subsystem of the cinehub backend.
//
// Preferences are typed, per-profile values owned by a user. Every submitted value is checked
// against a registry of preference types (string, number, boolean or enum) before it is stored,
// and batches are processed with partial-failure semantics: invalid entries are reported as
// messages while the valid ones are persisted. Storage backends live in the storage package,
// caches in the cache package and the HTTP surface in the api package.
package cinehub
