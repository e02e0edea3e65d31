// Package todo defines tasks and their persisted list encoding.
//
// A task list is stored as a single JSON array under one key:
//
//	[
//	  {"id": "0192f8c4-7a3e-7b21-9c1d-3f0e8a6b5d42", "text": "Buy milk", "completed": false},
//	  {"id": "0192f8c4-8b10-7e44-a2f3-55c7d1e09a17", "text": "Call mum", "completed": true}
//	]
//
// # Validation
//
// Stored blobs are validated against the embedded JSON Schema
// (tasks.schema.json, draft 2020-12) before they are unmarshalled. Every
// record must carry a non-empty string id, a string text and a boolean
// completed flag. Unknown fields are ignored.
//
// User input is validated separately by ValidateText: text is trimmed and
// rejected if nothing remains.
//
// # IDs
//
//   - "uuid7": time-ordered UUIDv7 (default)
//   - "timestamp": creation time in Unix milliseconds
package todo
