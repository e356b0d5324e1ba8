// Package api exposes the notification engine over HTTP: the on-demand
// reminder trigger, status and queue health probes, and an authenticated
// enqueue endpoint for other services. Handlers translate HTTP concerns to
// calls on the reminder generator, the queue store and the enqueuer.
package api
