// Package notes_sdk bootstraps a notes.Client from environment variables.
// NOTES_RUNTIME_MODE selects "http", "mock" or "auto" (the default): auto uses
// HTTP when NOTES_API_URL is set and otherwise falls back to an in-memory mock
// that stays API compatible with the HTTP client. NOTES_MOCK_SEED points at a
// JSON seed for the mock; NOTES_HTTP_TIMEOUT and NOTES_MAX_RETRIES tune the
// HTTP transport (no timeout and no retries unless set).
package notes_sdk
