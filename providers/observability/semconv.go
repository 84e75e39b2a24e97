package observability

// Semantic conventions shared by storage backends and the memory manager.

// --- Storage Attributes ---

const (
	// AttrStorageBackend names the backend implementation ("file", "postgres", ...).
	AttrStorageBackend = "storage.backend"

	// AttrStorageKey is the key being saved, loaded or cleared.
	AttrStorageKey = "storage.key"

	// AttrStorageNamespace is the backend namespace (directory, prefix, column value).
	AttrStorageNamespace = "storage.namespace"

	// AttrStorageStatus is the load outcome ("found", "absent", "corrupt").
	AttrStorageStatus = "storage.status"

	// AttrStorageBytes is the encoded payload size.
	AttrStorageBytes = "storage.bytes"

	// AttrStorageRepaired marks a payload that was fixed by JSON repair.
	AttrStorageRepaired = "storage.repaired"
)

// --- Memory Attributes ---

const (
	// AttrMemoryManagerID identifies the manager instance.
	AttrMemoryManagerID = "memory.manager.id"

	// AttrMemoryRole is the backend role ("persistent" or "context").
	AttrMemoryRole = "memory.role"

	// AttrMemoryMessageLength is the length of the appended message.
	AttrMemoryMessageLength = "memory.message.length"

	// AttrMemoryTotalMessages is the transcript length after the operation.
	AttrMemoryTotalMessages = "memory.total_messages"

	// AttrMemoryMirrorPolicy is the configured mirror policy ("async" or "sync").
	AttrMemoryMirrorPolicy = "memory.mirror.policy"

	// AttrMemoryMirrorGeneration is the transcript generation a mirror job covers.
	AttrMemoryMirrorGeneration = "memory.mirror.generation"

	// AttrMemoryMirrorOp is the mirror job kind ("save" or "clear").
	AttrMemoryMirrorOp = "memory.mirror.op"
)

// --- General Attributes ---

const (
	AttrError             = "error"
	AttrDuration          = "duration"
	AttrStatus            = "status"
	AttrStatusDescription = "status_description"
)

// --- Span Names ---

const (
	SpanStorageSave  = "storage.save"
	SpanStorageLoad  = "storage.load"
	SpanStorageClear = "storage.clear"

	SpanMemoryAddToHistory  = "memory.add_to_history"
	SpanMemoryGetHistory    = "memory.get_history"
	SpanMemoryClearHistory  = "memory.clear_history"
	SpanMemoryResumeHistory = "memory.resume_history"
	SpanMemoryMirror        = "memory.mirror"
)

// --- Event Names ---

const (
	// EventMemoryAppend marks when a message is appended to the transcript.
	EventMemoryAppend = "memory.append"

	// EventMemoryClear marks when the transcript is reset.
	EventMemoryClear = "memory.clear"

	// EventMirrorCoalesced marks a pending snapshot replaced by a newer one.
	EventMirrorCoalesced = "memory.mirror.coalesced"
)

// --- Metric Names ---

const (
	MetricStorageOpCount       = "redline.storage.op.count"
	MetricStorageOpDuration    = "redline.storage.op.duration"
	MetricMemoryMirrorCount    = "redline.memory.mirror.count"
	MetricMemoryMirrorFailures = "redline.memory.mirror.failures"
	MetricMemoryMirrorDuration = "redline.memory.mirror.duration"
)
