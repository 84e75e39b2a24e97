// Package filestore is the reference file-backed [storage.Storage]. Each key
// is one JSON file at {basePath}/{key}.json, rewritten whole on every Save
// and read whole on every Load. A missing file loads as absent and an
// undecodable one as corrupt.
//
// Clear removes only {basePath}/history.json; other keys are left in place.
// Writes go straight to the target file, so a crash mid-write can leave a
// truncated file behind, which then loads as corrupt (or, with [WithRepair],
// is recovered when jsonrepair can close it).
package filestore
