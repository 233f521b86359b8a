// Package config loads the launcher configuration.
//
// Settings come from built-in defaults, overlaid by a YAML file. The file
// is read from the XDG configuration directory unless a path is given
// explicitly. Only keys present in the file replace their defaults, so an
// empty file is valid. Unknown keys are rejected.
//
//	registry:
//	  url: https://registry.hub.docker.com
//	  namespace: library
//	platform: linux/amd64
//	retries: 0
//	verify_digests: true
//	scratch_dir: /tmp/crate
//	namespaces: [cgroup, ipc, mount, pid, uts]
//	keep_root: false
package config
