// Package storage defines the persistence-facing contract used by appstate
// stores, plus a small set of backends implementing it.
//
// Responsibilities:
//   - Storage only reads/writes one opaque text payload per key. Encoding and
//     whitelist filtering stay in the appstate core; backends make no
//     assumptions about payload shape.
//   - Read and write failures are wrapped in ReadError/WriteError so callers
//     can classify them with errors.As without depending on backend types.
//
// Backends:
//
//	MemoryStorage  — mutex-guarded map, for tests and ephemeral stores.
//	FileStorage    — one JSON text file per key, atomic rename on write.
//	SQLiteStorage  — single kv table, the closest analog to the SQLite-backed
//	                 key/value stores mobile runtimes ship with.
//
// All backends must be safe for concurrent use; appstate issues unserialized
// fire-and-forget writes.
package storage
