// Package sessionservice implements the live session core inside the
// assembly-governance context.
//
// The module owns the meeting lifecycle, the motion registry with its
// single-open-motion invariant, ballot ingestion, the attendance and proxy
// ledger, deterministic decision evaluation on close, and polled read
// projections. It keeps business rules in application/domain layers and
// isolates infrastructure concerns behind ports and adapters.
package sessionservice
