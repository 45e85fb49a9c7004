// Package toolrun provides subprocess execution utilities for the external
// geospatial tools the toolkit orchestrates (GRASS, LAStools, SPDLib, FUSION,
// points2grid and the GDAL utilities).
package toolrun

import (
	"bytes"
	"os/exec"
)

// CommandExecutor defines an interface for executing external tool commands.
// This abstraction enables unit testing without real tool execution.
type CommandExecutor interface {
	// Run executes the command and returns the combined output (stdout+stderr).
	Run() ([]byte, error)

	// SetStdin sets the stdin for the command.
	SetStdin(stdin []byte)

	// SetDir sets the working directory for the command.
	SetDir(dir string)
}

// CommandBuilder defines an interface for building tool commands.
// This abstraction enables unit testing of argument construction.
type CommandBuilder interface {
	// BuildCommand creates a CommandExecutor for running a tool directly.
	BuildCommand(name string, args ...string) CommandExecutor

	// LookPath reports where the named tool resolves, or an error if it
	// is not installed.
	LookPath(name string) (string, error)
}

// RealCommandExecutor wraps exec.Cmd to implement CommandExecutor.
type RealCommandExecutor struct {
	cmd *exec.Cmd
}

// Run executes the command and returns combined output.
func (r *RealCommandExecutor) Run() ([]byte, error) {
	return r.cmd.CombinedOutput()
}

// SetStdin sets stdin for the command.
func (r *RealCommandExecutor) SetStdin(stdin []byte) {
	r.cmd.Stdin = bytes.NewReader(stdin)
}

// SetDir sets the working directory for the command.
func (r *RealCommandExecutor) SetDir(dir string) {
	r.cmd.Dir = dir
}

// RealCommandBuilder implements CommandBuilder using exec.Command.
type RealCommandBuilder struct{}

// NewRealCommandBuilder creates a new RealCommandBuilder.
func NewRealCommandBuilder() *RealCommandBuilder {
	return &RealCommandBuilder{}
}

// BuildCommand creates a CommandExecutor for the given tool and arguments.
func (b *RealCommandBuilder) BuildCommand(name string, args ...string) CommandExecutor {
	return &RealCommandExecutor{cmd: exec.Command(name, args...)}
}

// LookPath resolves the tool on PATH.
func (b *RealCommandBuilder) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// MockCommandExecutor implements CommandExecutor for testing.
type MockCommandExecutor struct {
	// Output is the output to return from Run.
	Output []byte
	// Err is the error to return from Run.
	Err error
	// Stdin holds the stdin data that was set.
	Stdin []byte
	// Dir holds the working directory that was set.
	Dir string
	// RunCalled indicates whether Run was called.
	RunCalled bool
}

// Run returns the configured output and error.
func (m *MockCommandExecutor) Run() ([]byte, error) {
	m.RunCalled = true
	return m.Output, m.Err
}

// SetStdin records the stdin data.
func (m *MockCommandExecutor) SetStdin(stdin []byte) {
	m.Stdin = stdin
}

// SetDir records the working directory.
func (m *MockCommandExecutor) SetDir(dir string) {
	m.Dir = dir
}

// MockCall records one command built through a MockCommandBuilder.
type MockCall struct {
	Name string
	Args []string
	// Executor is the executor handed back for this call.
	Executor *MockCommandExecutor
}

// MockCommandBuilder implements CommandBuilder for testing. Each built
// command is recorded; outputs and errors can be scripted per call in order,
// with the zero value answering every call with empty success.
type MockCommandBuilder struct {
	// Calls records every command built, in order.
	Calls []MockCall
	// Outputs supplies the output for each call in order.
	Outputs [][]byte
	// Errs supplies the error for each call in order.
	Errs []error
	// MissingTools lists tool names LookPath should report as not found.
	MissingTools []string
}

// BuildCommand records the call and returns a scripted executor.
func (b *MockCommandBuilder) BuildCommand(name string, args ...string) CommandExecutor {
	idx := len(b.Calls)
	m := &MockCommandExecutor{}
	if idx < len(b.Outputs) {
		m.Output = b.Outputs[idx]
	}
	if idx < len(b.Errs) {
		m.Err = b.Errs[idx]
	}
	b.Calls = append(b.Calls, MockCall{Name: name, Args: args, Executor: m})
	return m
}

// LookPath reports the tool as found unless it is listed in MissingTools.
func (b *MockCommandBuilder) LookPath(name string) (string, error) {
	for _, missing := range b.MissingTools {
		if missing == name {
			return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
		}
	}
	return "/usr/bin/" + name, nil
}

// CommandLines returns the built commands rendered as space-joined strings,
// convenient for asserting whole invocation chains.
func (b *MockCommandBuilder) CommandLines() []string {
	lines := make([]string, 0, len(b.Calls))
	for _, c := range b.Calls {
		line := c.Name
		for _, a := range c.Args {
			line += " " + a
		}
		lines = append(lines, line)
	}
	return lines
}
