package sandbox

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/kballard/go-shellquote"
	specs "github.com/opencontainers/runtime-spec/specs-go"
	"golang.org/x/sys/unix"
)

// Directories searched inside the root for commands given without a slash.
var searchPath = []string{
	"/usr/local/sbin",
	"/usr/local/bin",
	"/usr/sbin",
	"/usr/bin",
	"/sbin",
	"/bin",
}

// A root directory ready to host a child.
type Root struct {
	dir string // Absolute host path of the root.
}

// Prepares dir to become a child's filesystem root.
//
// A dev directory and an empty dev/null regular file are created under dir
// when missing, since many programs probe for /dev/null at startup. Paths
// are resolved within dir, so symlinks in the image cannot redirect the
// writes to the host.
func Prepare(dir string) (*Root, error) {
	abs, err := absDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPrepare, err)
	}

	devDir, err := securejoin.SecureJoin(abs, "dev")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPrepare, err)
	}
	if err := os.MkdirAll(devDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPrepare, err)
	}

	devNull, err := securejoin.SecureJoin(abs, "dev/null")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPrepare, err)
	}
	if _, err := os.Lstat(devNull); errors.Is(err, fs.ErrNotExist) {
		f, err := os.OpenFile(devNull, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o666)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPrepare, err)
		}
		f.Close()
	} else if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPrepare, err)
	}

	return &Root{dir: abs}, nil
}

// Returns the host path of the root.
func (r *Root) Dir() string {
	return r.dir
}

// Selects the namespaces the child is created in.
//
// At least one namespace is required; running without isolation is not
// a supported mode. Fails with [ErrUnsupportedNamespace] on a namespace
// that cannot be requested at clone time.
func (r *Root) Isolate(namespaces []specs.LinuxNamespaceType) (*Isolated, error) {
	if len(namespaces) == 0 {
		return nil, fmt.Errorf("%w: no namespaces requested", ErrIsolation)
	}

	flags, err := namespaceFlags(namespaces)
	if err != nil {
		return nil, err
	}

	return &Isolated{root: r, flags: flags, namespaces: namespaces}, nil
}

// A root whose child will be created in new namespaces.
type Isolated struct {
	root       *Root
	flags      uintptr
	namespaces []specs.LinuxNamespaceType
}

// Builds the child process.
//
// A name without a slash is looked up in the usual bin directories inside
// the root; when nothing matches it is used as given and the child fails at
// exec. The child inherits the caller's standard streams and starts with an
// empty environment.
func (i *Isolated) Command(name string, args ...string) *Child {
	cmd := &exec.Cmd{
		Path:   i.root.resolve(name),
		Args:   append([]string{name}, args...),
		Env:    []string{},
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		SysProcAttr: &syscall.SysProcAttr{
			Cloneflags: i.flags,
			Pdeathsig:  syscall.SIGKILL,
		},
	}

	return &Child{isolated: i, cmd: cmd}
}

// A child that has been built but not confined.
type Child struct {
	isolated *Isolated
	cmd      *exec.Cmd
}

// Replaces the child's standard streams. Nil values connect to the null
// device.
func (c *Child) SetStdio(stdin io.Reader, stdout, stderr io.Writer) {
	c.cmd.Stdin = stdin
	c.cmd.Stdout = stdout
	c.cmd.Stderr = stderr
}

// Confines the child to the root.
//
// The root change and the change to "/" are performed by the child after
// fork and before exec, so only the target program observes them. Fails
// with [ErrInvalidState] if the child was already started.
func (c *Child) Confine() (*Confined, error) {
	if c.cmd.Process != nil {
		return nil, fmt.Errorf("%w: child already started", ErrInvalidState)
	}

	c.cmd.SysProcAttr.Chroot = c.isolated.root.dir
	c.cmd.Dir = "/"

	return &Confined{child: c}, nil
}

// A child that will run confined to its root.
type Confined struct {
	child *Child
	ran   bool
}

// Starts the child and blocks until it exits.
//
// A non-zero exit or a signal is reported through the returned status, not
// as an error. Start failures are classified as [ErrIsolation] when the
// kernel refused the namespaces, [ErrExec] when the command is missing or
// not executable inside the root, and [ErrConfinement] otherwise. A child
// can only be run once.
func (c *Confined) Run() (ExitStatus, error) {
	if c.ran {
		return ExitStatus{}, fmt.Errorf("%w: child already ran", ErrInvalidState)
	}
	c.ran = true

	cmd := c.child.cmd

	slog.Info("starting sandboxed command",
		"root", c.child.isolated.root.dir,
		"command", shellquote.Join(cmd.Args...),
		"namespaces", c.child.isolated.namespaces,
	)

	if err := cmd.Start(); err != nil {
		return ExitStatus{}, classifyStart(err)
	}

	slog.Debug("sandboxed command started", "pid", cmd.Process.Pid)

	err := cmd.Wait()

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return ExitStatus{}, fmt.Errorf("%w: %w", ErrSandbox, err)
	}

	status := statusOf(cmd.ProcessState)
	slog.Debug("sandboxed command exited", "status", status.String())

	return status, nil
}

// Runs name with args confined to dir in the given namespaces, walking
// through every step of the sequence.
func Execute(dir string, namespaces []specs.LinuxNamespaceType, name string, args ...string) (ExitStatus, error) {
	root, err := Prepare(dir)
	if err != nil {
		return ExitStatus{}, err
	}

	isolated, err := root.Isolate(namespaces)
	if err != nil {
		return ExitStatus{}, err
	}

	confined, err := isolated.Command(name, args...).Confine()
	if err != nil {
		return ExitStatus{}, err
	}

	return confined.Run()
}

// Returns the path the child execs for name, relative to the new root.
func (r *Root) resolve(name string) string {
	if name == "" || strings.Contains(name, "/") {
		return name
	}

	for _, dir := range searchPath {
		candidate := path.Join(dir, name)

		host, err := securejoin.SecureJoin(r.dir, candidate)
		if err != nil {
			continue
		}

		info, err := os.Stat(host)
		if err != nil || !info.Mode().IsRegular() || info.Mode().Perm()&0o111 == 0 {
			continue
		}

		return candidate
	}

	slog.Debug("command not found in root search path", "command", name)
	return name
}

// Maps a start failure onto the sandbox error taxonomy.
func classifyStart(err error) error {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return fmt.Errorf("%w: %w", ErrConfinement, err)
	}

	switch errno {
	case unix.EPERM, unix.EINVAL, unix.ENOSPC, unix.EUSERS:
		return fmt.Errorf("%w: %w", ErrIsolation, err)
	case unix.ENOENT, unix.ENOEXEC, unix.EACCES, unix.ENOTDIR:
		return fmt.Errorf("%w: %w", ErrExec, err)
	default:
		return fmt.Errorf("%w: %w", ErrConfinement, err)
	}
}

// Returns the absolute form of dir after checking it is a directory.
func absDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", abs)
	}
	return abs, nil
}
