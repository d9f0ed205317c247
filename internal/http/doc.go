// Package http provides HTTP handlers and middleware for the on-call API.
//
// The router exposes two surfaces. The telephony host uses the open
// endpoints:
//   - GET /oncall/current: who should be dialed now, with an optional `at`
//     RFC 3339 query parameter. Falls back to the configured last-resort
//     number when nothing is scheduled.
//   - GET /oncall/chain: the effective escalation chain at an instant.
//   - GET /oncall/schedule?from=&to=: the resolved per-day calendar view.
//   - POST /escalations, GET /escalations/{id},
//     POST /escalations/{id}/answered, POST /escalations/{id}/ended:
//     the escalation run lifecycle.
//
// Administration requires a bearer session token obtained from
// POST /sessions and revoked with DELETE /sessions/current:
//   - /users, /rotations, /overrides: CRUD for the schedule building blocks.
//   - /calendar, /calendar/{date}, /calendar/import: the manual day calendar,
//     including CSV import.
//   - /schedule/legacy, /schedule/config: the weekday/hour fallback table and
//     shared resolution settings.
//   - /escalation-policy: the singleton escalation chain configuration.
//   - /webhooks, /webhooks/{id}/test, /webhook-deliveries: outbound
//     notification endpoints and their delivery log.
//   - /logs/audit, /logs/calls: the capped operational logs.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
