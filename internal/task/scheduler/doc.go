// Package scheduler registers triggers (cron, interval, one-shot) and enqueues
// the resulting tasks into the task engine. It never executes work itself.
package scheduler
