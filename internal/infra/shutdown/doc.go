// Package shutdown coordinates graceful process termination.
//
// Components register hooks with OnShutdown as they start. Wait blocks until
// SIGINT, SIGTERM or an explicit Trigger, then runs the hooks in reverse
// registration order under a shared timeout, so the last component started
// is the first one stopped.
package shutdown
