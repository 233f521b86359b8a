// Parses flags and dispatches the launcher's commands.
//
// The launcher accepts the following global flags:
//
//	-q, --quiet     Suppress informational output.
//	-v, --verbose   Enable verbose output.
//	-d, --debug     Enable debug output.
//	-c, --config    Configuration file path.
//
// Flags override build-time defaults set via linker flags. After parsing, the
// global logger is reconfigured to reflect the final level and verbosity
// before the command runs. Command flags override values from the
// configuration file.
//
// The run command ends with the exit code of the sandboxed command, which
// is reported to main as an [ExitError].
package cli
