// Package supervisor runs the target image inside QEMU and decides when the
// virtual machine has to go.
//
// QEMU is started with two serial ports:
//
//	-serial mon:stdio        console: readiness prompt, commands, monitor quit
//	-serial file:<log>       diagnostic log, parsed after the process is gone
//
// The console is watched for a prompt sentinel ("> ") with a hard deadline.
// Every wait starts a fresh bounded read; when the deadline passes first the
// reader is abandoned and QEMU is killed. After the optional command phase
// the supervisor switches to the monitor and sends "quit", then gives QEMU a
// bounded time to exit before killing it.
//
// The child process is always in a terminal state when Run returns, on every
// path including timeouts, start failures and context cancellation.
package supervisor
