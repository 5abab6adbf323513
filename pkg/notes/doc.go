// Package notes provides a lightweight client for the notes REST API:
// GET /api/notes, POST /api/notes, POST /api/notes/{id}/vote?type=up|down and
// DELETE /api/notes/{id}. The public Go API centres around the Client type,
// which runs over a Backend so the same calls can target the HTTP service or
// an in-memory model (see package mock and package notes_sdk). Sandbox
// servers additionally expose a websocket change feed consumed by Watch.
package notes
