// Package memory provides the conversation memory [Manager]. A Manager sits
// between callers and two [storage.Storage] backends used in different roles:
//
//   - persistent: long-lived values saved and loaded by key, passed straight
//     through to the backend.
//   - context: the conversation history. The Manager keeps the running
//     transcript in memory and mirrors the full snapshot to the context
//     backend under [storage.HistoryKey] after every append.
//
// Mirror writes for one Manager go through a single writer, so write N+1
// never starts before write N completes. Snapshots queued while a write is in
// flight are coalesced; only the newest one is written. With [MirrorAsync]
// (the default) AddToHistory returns once the write is queued and failures
// are logged and reported to the [WithMirrorErrorHandler] callback. With
// [MirrorSync] AddToHistory waits for the write that covers its message.
//
// GetConversationHistory reads the context backend, not the in-memory
// transcript, after waiting for the writes queued before it. If mirroring
// failed, it shows what the backend actually holds; use [Manager.Transcript]
// for the in-memory view.
//
// A new Manager starts with an empty transcript, and its first append
// replaces whatever history the backend holds. Call [Manager.ResumeHistory]
// first to continue a history written by an earlier process.
//
//	mgr := memory.NewFileManager("/tmp/mem")
//	defer mgr.Close(ctx)
//
//	_ = mgr.AddToHistory(ctx, "hello")
//	_ = mgr.AddToHistory(ctx, "world")
//	history, _ := mgr.GetConversationHistory(ctx) // ["hello", "world"]
package memory
