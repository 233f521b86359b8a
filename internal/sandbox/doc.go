// Package sandbox runs a command confined to a prepared root directory.
//
// Confinement is built in a fixed order, and each step is a distinct type
// so the order cannot be skipped or reversed:
//
//	Prepare  -> *Root      dev/null exists under the root directory
//	Isolate  -> *Isolated  kernel namespaces selected for the child
//	Command  -> *Child     executable, arguments, stdio and empty environment
//	Confine  -> *Confined  root change and working directory applied at start
//	Run      -> ExitStatus child started, waited for, status collected
//
// Namespaces are created by the clone call that forks the child, and the
// root change happens in the child between fork and exec. Neither affects
// the calling process. A failure to create namespaces surfaces as
// [ErrIsolation] before the target program runs; a failure to enter the
// root surfaces as [ErrConfinement].
//
// Example usage:
//
//	root, err := sandbox.Prepare(dir)
//	if err != nil {
//	    return err
//	}
//
//	isolated, err := root.Isolate(sandbox.DefaultNamespaces())
//	if err != nil {
//	    return err
//	}
//
//	confined, err := isolated.Command("/bin/echo", "hello").Confine()
//	if err != nil {
//	    return err
//	}
//
//	status, err := confined.Run()
//	if err != nil {
//	    return err
//	}
//	os.Exit(status.ExitCode())
//
// Running a sandbox requires the privileges to create the requested
// namespaces and to change root, which in practice means running as root.
package sandbox
