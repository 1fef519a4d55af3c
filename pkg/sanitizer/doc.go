// Package sanitizer normalizes client-supplied identifiers and free text before
// validation and storage.
//
// All functions are idempotent. Invalid input yields an empty string rather
// than an error so the validator can reject it with a field-level message.
//
// Normalization includes:
//   - Identifiers (session, device, card, account ids): trimmed, restricted to [A-Za-z0-9_-]
//   - Account numbers: separators removed, uppercased
//   - PINs: digits only
//   - Reviewer notes: whitespace collapsed, control characters dropped, length capped
//   - Base URLs: trimmed, trailing slashes removed
package sanitizer
