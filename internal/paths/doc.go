// Provides platform-appropriate paths for the launcher.
//
// The configuration file follows XDG conventions on Linux and
// platform-native conventions on macOS. Sandbox roots live under the system
// temporary directory. The name "crate" is used as the subdirectory under
// each base path.
package paths
