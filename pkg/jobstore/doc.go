// Package jobstore persists jobs, triggers, and calendars for a scheduling
// engine and implements the engine-facing quartz.JobStore contract.
//
// Three repositories own single-entity CRUD; the Store coordinator composes
// them into the cross-entity operations (cascading deletes, bulk store,
// calendar propagation, and the acquire/fire protocol). Multi-document
// operations are explicit sequences, not transactions: a crash partway
// through leaves a transient state the next read must tolerate, and the
// documented partial-failure outcomes are part of the contract.
package jobstore
