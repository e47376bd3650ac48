// Package diagnostic provides structured issues reported by validation,
// decoding and definition loading.
//
// Key capabilities:
//   - Issues grouped by severity (error, warning, info)
//   - Stable issue codes (MissingRequiredField, InvalidCode, ...)
//   - FHIR element paths locating each issue
//   - Rendering as a FHIR OperationOutcome
//
// Diagnostics never abort processing: callers decide whether to reject,
// warn or correct based on the collected issues.
package diagnostic
