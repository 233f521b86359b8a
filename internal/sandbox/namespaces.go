package sandbox

import (
	"fmt"
	"slices"

	specs "github.com/opencontainers/runtime-spec/specs-go"
	"golang.org/x/sys/unix"
)

// Clone flag for each namespace a child can be placed in.
//
// User namespaces are left out: they change the privilege model of
// everything else here. Time namespaces cannot be requested at clone time.
var cloneFlags = map[specs.LinuxNamespaceType]uintptr{
	specs.CgroupNamespace:  unix.CLONE_NEWCGROUP,
	specs.IPCNamespace:     unix.CLONE_NEWIPC,
	specs.MountNamespace:   unix.CLONE_NEWNS,
	specs.PIDNamespace:     unix.CLONE_NEWPID,
	specs.UTSNamespace:     unix.CLONE_NEWUTS,
	specs.NetworkNamespace: unix.CLONE_NEWNET,
}

// Returns the namespaces every child gets unless configured otherwise.
func DefaultNamespaces() []specs.LinuxNamespaceType {
	return []specs.LinuxNamespaceType{
		specs.CgroupNamespace,
		specs.IPCNamespace,
		specs.MountNamespace,
		specs.PIDNamespace,
		specs.UTSNamespace,
	}
}

// Converts namespace names (e.g. "pid", "uts") into namespace types.
//
// Fails with [ErrUnsupportedNamespace] on an unknown or unsupported name.
func ParseNamespaces(names []string) ([]specs.LinuxNamespaceType, error) {
	types := make([]specs.LinuxNamespaceType, 0, len(names))
	for _, name := range names {
		t := specs.LinuxNamespaceType(name)
		if _, ok := cloneFlags[t]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedNamespace, name)
		}
		if !slices.Contains(types, t) {
			types = append(types, t)
		}
	}
	return types, nil
}

// Combines namespace types into clone flags.
func namespaceFlags(types []specs.LinuxNamespaceType) (uintptr, error) {
	var flags uintptr
	for _, t := range types {
		flag, ok := cloneFlags[t]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnsupportedNamespace, t)
		}
		flags |= flag
	}
	return flags, nil
}
