// Package notifier is the async delivery pipeline between the reminder
// handlers and a transport adapter: queue, worker pool, rate limit, retry
// with jittered backoff, and a dedup window so a restarted daemon does not
// repeat the same reminder.
//
// The service keeps a small in-memory history of delivered texts for the CLI.
package notifier
