// Package testutil provides test helpers that stand in for the WeiDU
// listing tool.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
)

// CreateMockBinary creates a fake executable in dir that prints stdout
// (which may span lines) and stderr, then exits with exitCode.
// On Unix: creates a shell script. On Windows: creates a .bat file.
// Returns the full path to the created binary.
func CreateMockBinary(t *testing.T, dir, name string, exitCode int, stdout, stderr string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		return createWindowsBat(t, dir, name, exitCode, stdout, stderr)
	}

	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	writeHeredoc(&b, stdout, "")
	writeHeredoc(&b, stderr, " >&2")
	fmt.Fprintf(&b, "exit %d\n", exitCode)

	return writeScript(t, filepath.Join(dir, name), b.String())
}

// CreateMockLister creates a fake listing tool that prints byLanguage[n] when
// its last argument (the language index) is n, and fallback otherwise. When
// argsFile is not empty every call appends its working directory and
// arguments to it as one line. Unix only; the test is skipped on Windows.
func CreateMockLister(t *testing.T, dir string, byLanguage map[int]string, fallback, argsFile string) string {
	t.Helper()
	SkipOnWindows(t)

	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	if argsFile != "" {
		fmt.Fprintf(&b, "echo \"$(pwd) $*\" >> '%s'\n", argsFile)
	}
	b.WriteString("for last; do :; done\n")
	b.WriteString("case \"$last\" in\n")

	langs := make([]int, 0, len(byLanguage))
	for n := range byLanguage {
		langs = append(langs, n)
	}
	sort.Ints(langs)
	for _, n := range langs {
		fmt.Fprintf(&b, "%d)\n", n)
		writeHeredoc(&b, byLanguage[n], "")
		b.WriteString(";;\n")
	}
	b.WriteString("*)\n")
	writeHeredoc(&b, fallback, "")
	b.WriteString(";;\nesac\nexit 0\n")

	return writeScript(t, filepath.Join(dir, "weidu"), b.String())
}

// CreateSlowBinary creates a fake tool that only sleeps for seconds. Unix only.
func CreateSlowBinary(t *testing.T, dir, name string, seconds int) string {
	t.Helper()
	SkipOnWindows(t)

	return writeScript(t, filepath.Join(dir, name), fmt.Sprintf("#!/bin/sh\nexec sleep %d\n", seconds))
}

// SkipOnWindows skips tests whose fakes are POSIX shell scripts.
func SkipOnWindows(t *testing.T) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("mock listing tool is a POSIX shell script")
	}
}

func writeHeredoc(b *strings.Builder, text, redirect string) {
	if text == "" {
		return
	}
	fmt.Fprintf(b, "cat%s <<'__MOCK_EOF__'\n%s\n__MOCK_EOF__\n", redirect, strings.TrimSuffix(text, "\n"))
}

func writeScript(t *testing.T, path, script string) string {
	t.Helper()

	if err := os.WriteFile(path, []byte(script), 0o755); err != nil { //nolint:gosec // test helper: mock binary must be executable
		t.Fatalf("failed to create mock binary %s: %v", filepath.Base(path), err)
	}

	return path
}

func createWindowsBat(t *testing.T, dir, name string, exitCode int, stdout, stderr string) string {
	t.Helper()

	path := filepath.Join(dir, name+".bat")

	script := "@echo off\r\n"

	for _, line := range strings.Split(stdout, "\n") {
		if line != "" {
			script += fmt.Sprintf("echo %s\r\n", line)
		}
	}

	for _, line := range strings.Split(stderr, "\n") {
		if line != "" {
			script += fmt.Sprintf("echo %s 1>&2\r\n", line)
		}
	}

	script += fmt.Sprintf("exit /b %d\r\n", exitCode)

	if err := os.WriteFile(path, []byte(script), 0o755); err != nil { //nolint:gosec // test helper: mock binary must be executable
		t.Fatalf("failed to create mock binary %s: %v", name, err)
	}

	return path
}

// PrependPath returns the current PATH with dir prepended, using the
// OS-appropriate path list separator.
func PrependPath(t *testing.T, dir string) string {
	t.Helper()

	return dir + string(os.PathListSeparator) + os.Getenv("PATH")
}
