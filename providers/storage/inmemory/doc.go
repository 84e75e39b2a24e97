// Package inmemory provides a concurrency-safe, map-backed [storage.Storage]
// for tests and single-process use where nothing needs to survive a restart.
// Values are kept in their encoded JSON form so a Load never shares memory
// with the value that was saved.
package inmemory
