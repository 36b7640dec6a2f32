// Package http provides HTTP handlers and middleware for the feedback analytics API.
//
// The router exposes the following endpoints:
//   - POST /attendance/taps: records a badge tap. Body: {"rfidId","eventId","tappedAt"?}.
//     Response: {"userId","transition","session","summary","feedbackLink"?}. A link is
//     minted only on the tap that first makes the attendee eligible.
//   - GET /events/{eventID}/attendees/{userID}/summary: attendance summary with
//     totalDuration as a Go duration string and totalDurationMinutes.
//   - POST /events/{eventID}/feedback-links: issues a signed link. Body:
//     {"userId","variant"?}. Fails with 403 NOT_ELIGIBLE below the minimum.
//   - GET /events/{eventID}/forms/{formID}/responses and
//     GET /events/{eventID}/feedback/responses: paginated analytics listing accepting
//     page, limit, search, sortBy and sortOrder. Response:
//     {"responses","form","statistics","meta"} where attendee.totalDuration is in
//     whole minutes. Both routes run under the configured query deadline.
//   - GET /feedback/public?token&userId: resolves a link into the event and form.
//   - POST /feedback/public?token&userId: submits answers. Body: {"responses":{...}}.
//   - GET /healthz and GET /metrics.
//
// Errors are rendered as {"error_code"?,"message","errors"?}. Expired links answer
// 410 with TOKEN_EXPIRED, tampered links 401 with TOKEN_INVALID.
package http
