// Package aggregates defines domain-facing aggregate contracts.
//
// Contracts describe semantic write boundaries: every write method either commits a
// state that satisfies the aggregate's invariants or leaves no observable change.
package aggregates
