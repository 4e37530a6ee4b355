// Package quartz defines the scheduling domain model persisted by schedstore:
// job details, the closed set of trigger kinds (simple, cron, calendar
// interval), exclusion calendars, trigger states, and the error taxonomy of
// the store contract.
//
// Triggers own their fire-time computation. The store only ever calls the
// shared capability set (ComputeFirstFireTime, Triggered, UpdateAfterMisfire,
// UpdateWithNewCalendar) and never inspects schedule fields directly.
package quartz
