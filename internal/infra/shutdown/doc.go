// Package shutdown coordinates process termination.
//
// A Handler waits for SIGINT or SIGTERM, an explicit Trigger (the admin
// socket's "shutdown" command) or the end of a context, then runs the
// registered hooks newest first under a shared timeout. SIGHUP runs the
// reload hooks without stopping.
package shutdown
