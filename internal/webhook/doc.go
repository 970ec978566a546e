// Package webhook implements the ingest boundary: HTTP endpoints that
// authenticate, normalize and dispatch third-party event deliveries.
//
// Each configured integration binds one URL path to a signing secret, a
// signature header, an event-type field and an event-type registry. The
// HTTP response depends only on authentication and parsing; what the
// pipelines later do with the event never changes the status the caller
// saw.
//
// # Request Flow
//
//  1. HTTP POST arrives at a configured path
//  2. Body size checked against the listener limit (413 if exceeded)
//  3. HMAC-SHA256 verified over the raw body bytes, constant-time
//  4. Body parsed as a JSON object
//  5. Event type read from the configured field and looked up in the
//     integration's registry
//  6. Event normalized: identity digest from the declared primary-key
//     field values, operation from the registry entry
//  7. Event dispatched to the pipeline executor, then 200 returned
//
// # Response Codes
//
//   - 200: signature valid and body well-formed. Unknown event types and
//     events whose identity fields are missing are still accepted; they
//     are dropped downstream without persistence.
//   - 400: missing signature header, or body is not a JSON object
//   - 401: signature mismatch
//   - 404: unknown path
//   - 413: body exceeds the configured limit
//
// The listener also serves /-/healthz (liveness) and /-/ready
// (readiness, backed by a store ping).
package webhook
