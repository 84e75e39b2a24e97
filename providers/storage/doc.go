// Package storage defines the keyed blob store that backs redline's memory
// layer. A [Storage] saves, loads and clears JSON-encodable values under
// string keys; the concrete media live in the sibling packages filestore,
// inmemory, pgstore, redisstore, s3store and sqlitestore, and any of them can
// be handed to the memory manager for either role.
//
// Loads return a tagged [Result] rather than a bare value so callers can tell
// a key that was never written ([StatusAbsent]) from one whose bytes no longer
// decode ([StatusCorrupt]). A medium that cannot be reached at all is reported
// as a [*ReadError] matching [ErrUnreachable].
package storage
