// Package butler runs the reminder passes (items, location, nightly) and keeps
// them scheduled.
//
// Every pass is a one-shot scheduler job that re-arms itself from a deferred
// hook once it finishes, whatever the outcome. A cron watchdog re-arms any
// chain that went missing (a failed re-arm, a scheduler restart).
//
// Each notification category is throttled against its persisted last-notified
// time and an optional do-not-disturb window.
package butler
