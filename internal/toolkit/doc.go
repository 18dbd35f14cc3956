// Package toolkit starts the DITA Open Toolkit and streams its merged console output.
//
// An InvocationSpec describes one run. Its Strategy decides what is executed: the
// launcher script, the JVM with a resolved classpath, or a host-supplied executable.
// Start builds the argument vector with one slot per value, runs the process in the
// toolkit home with DITA_HOME set, and exposes output as a channel of lines fed by a
// single reader goroutine. Wait reports a structured ExitStatus. Failures of the
// process itself are reported through the status, never retried here.
package toolkit
