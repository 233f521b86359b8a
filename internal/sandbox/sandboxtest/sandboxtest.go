// Package sandboxtest runs the test binary itself as a sandboxed command.
//
// A test package calls [Main] from its TestMain. When the binary is started
// with [HelperArg] as its first argument it acts as a helper command instead
// of running the tests, which lets tests place a known program inside a
// sandbox root without shipping a separate fixture.
package sandboxtest

import (
	"archive/tar"
	"bytes"
	"debug/elf"
	"os"
	"strconv"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// First argument that switches the test binary into helper mode.
const HelperArg = "sandbox-helper"

// Path of the helper inside layers built by [HelperLayer].
const HelperPath = "/helper"

// Dispatches helper invocations to helper, or runs the tests. A nil helper
// handles only "exit <code>".
func Main(m *testing.M, helper func(command string, args []string) int) {
	if len(os.Args) > 2 && os.Args[1] == HelperArg {
		if helper == nil {
			helper = Exit
		}
		os.Exit(helper(os.Args[2], os.Args[3:]))
	}
	os.Exit(m.Run())
}

// Exits with the code given to "exit". Returns 2 for anything else.
func Exit(command string, args []string) int {
	if command != "exit" || len(args) == 0 {
		return 2
	}
	code, err := strconv.Atoi(args[0])
	if err != nil {
		return 2
	}
	return code
}

// Returns the path of the running test binary.
//
// Skips the test unless it runs as root and the binary is statically
// linked, since a sandbox root holds no dynamic loader.
func Executable(t *testing.T) string {
	t.Helper()

	if os.Geteuid() != 0 {
		t.Skip("sandbox tests require root")
	}

	exe, err := os.Executable()
	if err != nil {
		t.Fatal(err)
	}

	f, err := elf.Open(exe)
	if err != nil {
		t.Skipf("test binary is not ELF: %v", err)
	}
	defer f.Close()

	for _, p := range f.Progs {
		if p.Type == elf.PT_INTERP {
			t.Skip("test binary is dynamically linked")
		}
	}

	return exe
}

// Builds a gzip-compressed tar layer holding the test binary at
// [HelperPath]. Skips the test under the same conditions as [Executable].
func HelperLayer(t *testing.T) []byte {
	t.Helper()

	data, err := os.ReadFile(Executable(t))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	hdr := &tar.Header{
		Name:     HelperPath[1:],
		Typeflag: tar.TypeReg,
		Mode:     0o755,
		Size:     int64(len(data)),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
