// Package emailchange implements the email-change confirmation workflow for
// the VS Fund API: an authenticated member asks to change their account email,
// confirms the change out-of-band via a mailed single-use link, and the change
// is propagated to the external identity directory (the system of record for
// login credentials).
//
// Token lifecycle:
//   - RequestEmailChangeHandler writes a pending EmailChangeRequest row keyed
//     by a crypto-random token with an absolute expiry, then hands the token to
//     a Notifier. A row's presence means "pending"; absence means consumed or
//     reaped.
//   - ConfirmEmailChangeHandler validates the token without mutating it, asks
//     the Directory to update the member email, and only then consumes the
//     token. The external write always happens before the local delete, so a
//     crash or directory failure leaves the confirmation link replayable.
//   - Janitor periodically purges expired, never-confirmed rows.
//
// Directory propagation:
//   - The external directory applies updates asynchronously. The post-update
//     read-back is diagnostic only; the commit decision rests on the update
//     call succeeding, never on the read-back.
//
// Activity sinks:
//   - ActivitySink is a best-effort audit emitter fed by both handlers. Sink
//     errors are logged and never block a confirmation. NewAuditTrailSink
//     persists events to the audit_logs table.
package emailchange
