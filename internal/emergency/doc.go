// Package emergency implements the alert escalation engine: durable
// EmergencyAlert records, case status transitions on escalation, and
// concurrent multi-channel fan-out with per-channel outcome recording.
//
// The correctness bar is alert durability, not delivery. The alert row is
// written before any channel is touched, and a channel failure is recorded
// on the alert rather than surfaced as a request failure.
package emergency
