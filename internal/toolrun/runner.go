package toolrun

import (
	"fmt"
	"strings"
)

// Logger defines the interface for debug logging.
type Logger interface {
	Debugf(format string, args ...interface{})
}

// nopLogger is a no-op logger implementation.
type nopLogger struct{}

func (n nopLogger) Debugf(format string, args ...interface{}) {}

// Runner executes external tools synchronously. All invocations block until
// the tool exits; there is no timeout or retry, a hung tool hangs the run.
type Runner struct {
	Builder CommandBuilder
	DryRun  bool
	Logger  Logger
}

// NewRunner creates a Runner backed by real command execution.
func NewRunner(dryRun bool) *Runner {
	return &Runner{
		Builder: NewRealCommandBuilder(),
		DryRun:  dryRun,
		Logger:  nopLogger{},
	}
}

// NewMockRunner creates a Runner backed by the given mock builder, for tests.
func NewMockRunner(builder *MockCommandBuilder) *Runner {
	return &Runner{
		Builder: builder,
		Logger:  nopLogger{},
	}
}

// SetLogger sets the debug logger for the runner.
func (r *Runner) SetLogger(logger Logger) {
	if logger != nil {
		r.Logger = logger
	}
}

// Available reports whether the named tool can be resolved for execution.
func (r *Runner) Available(name string) bool {
	_, err := r.Builder.LookPath(name)
	return err == nil
}

// Run executes a tool with the given arguments and returns its combined
// output. The error from a non-zero exit is wrapped together with the output
// so callers can surface the failing step.
func (r *Runner) Run(name string, args ...string) (string, error) {
	return r.run(name, args, nil, "")
}

// RunIn executes a tool with the working directory set to dir.
func (r *Runner) RunIn(dir, name string, args ...string) (string, error) {
	return r.run(name, args, nil, dir)
}

// RunStdin executes a tool feeding stdin to it. GRASS mapcalc expressions
// and gdaltransform coordinate lists are passed this way.
func (r *Runner) RunStdin(stdin []byte, name string, args ...string) (string, error) {
	return r.run(name, args, stdin, "")
}

func (r *Runner) run(name string, args []string, stdin []byte, dir string) (string, error) {
	command := renderCommand(name, args)
	if r.DryRun {
		return fmt.Sprintf("[DRY-RUN] Would execute: %s", command), nil
	}

	r.Logger.Debugf("Executing: %s", command)

	cmd := r.Builder.BuildCommand(name, args...)
	if stdin != nil {
		cmd.SetStdin(stdin)
	}
	if dir != "" {
		cmd.SetDir(dir)
	}

	output, err := cmd.Run()
	if err != nil {
		r.Logger.Debugf("Command failed: %v, output: %s", err, output)
		return string(output), fmt.Errorf("%s failed: %w, output: %s", name, err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}

func renderCommand(name string, args []string) string {
	parts := append([]string{name}, args...)
	for i, p := range parts {
		if strings.ContainsAny(p, " \t") {
			parts[i] = "'" + p + "'"
		}
	}
	return strings.Join(parts, " ")
}
