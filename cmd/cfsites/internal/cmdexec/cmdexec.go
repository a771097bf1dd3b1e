// Package cmdexec runs the external tools (cdk, aws) the CLI drives.
package cmdexec

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/advdv/cfsites/cmd/cfsites/internal/config"
	"github.com/cockroachdb/errors"
)

// MiseFileName marks a project whose tools are pinned with mise.
const MiseFileName = "mise.toml"

// Executor provides a common interface for executing external commands.
type Executor interface {
	// WithOutput returns a new Executor that writes to the given stdout/stderr.
	WithOutput(stdout, stderr io.Writer) Executor

	// InSubdir returns a new Executor that runs commands in a subdirectory.
	InSubdir(subdir string) Executor

	// WithEnv returns a new Executor with an additional environment variable.
	WithEnv(key, value string) Executor

	// Dir returns the working directory for this executor.
	Dir() string

	// Run executes a command and streams output to configured writers.
	Run(ctx context.Context, name string, args ...string) error

	// Output executes a command and returns stdout as a string.
	Output(ctx context.Context, name string, args ...string) (string, error)

	// Tool executes a project tool, wrapped with "mise exec --" when the project uses mise.
	Tool(ctx context.Context, name string, args ...string) error

	// ToolOutput executes a project tool and returns stdout as a string.
	ToolOutput(ctx context.Context, name string, args ...string) (string, error)
}

type executor struct {
	dir    string
	mise   bool
	stdout io.Writer
	stderr io.Writer
	env    []string
}

// New creates an Executor for the CDK directory of the project. Tools are run through
// mise when the project directory holds a mise.toml.
func New(cfg config.Config) Executor {
	_, err := os.Stat(filepath.Join(cfg.ProjectDir, MiseFileName))
	return &executor{
		dir:  cfg.CDKDir(),
		mise: err == nil,
	}
}

// NewWithDir creates an Executor with an explicit working directory that runs
// tools directly. Use this for commands like init where no config exists yet.
func NewWithDir(dir string) Executor {
	return &executor{
		dir: dir,
	}
}

func (e *executor) clone() *executor {
	c := *e
	return &c
}

func (e *executor) WithOutput(stdout, stderr io.Writer) Executor {
	c := e.clone()
	c.stdout, c.stderr = stdout, stderr
	return c
}

func (e *executor) InSubdir(subdir string) Executor {
	c := e.clone()
	c.dir = filepath.Join(e.dir, subdir)
	return c
}

func (e *executor) WithEnv(key, value string) Executor {
	c := e.clone()
	c.env = make([]string, len(e.env), len(e.env)+1)
	copy(c.env, e.env)
	c.env = append(c.env, key+"="+value)
	return c
}

func (e *executor) Dir() string {
	return e.dir
}

func (e *executor) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = e.dir
	cmd.Stdout = e.stdout
	cmd.Stderr = e.stderr
	e.applyEnv(cmd)

	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "%s failed", name)
	}

	return nil
}

func (e *executor) Output(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = e.dir
	cmd.Stderr = e.stderr
	e.applyEnv(cmd)

	output, err := cmd.Output()
	if err != nil {
		return "", errors.Wrapf(err, "%s failed", name)
	}

	return strings.TrimSpace(string(output)), nil
}

func (e *executor) Tool(ctx context.Context, name string, args ...string) error {
	name, args = e.wrap(name, args)
	return e.Run(ctx, name, args...)
}

func (e *executor) ToolOutput(ctx context.Context, name string, args ...string) (string, error) {
	name, args = e.wrap(name, args)
	return e.Output(ctx, name, args...)
}

func (e *executor) wrap(name string, args []string) (string, []string) {
	if !e.mise {
		return name, args
	}

	miseArgs := make([]string, 0, 3+len(args))
	miseArgs = append(miseArgs, "exec", "--", name)
	miseArgs = append(miseArgs, args...)
	return "mise", miseArgs
}

func (e *executor) applyEnv(cmd *exec.Cmd) {
	if len(e.env) > 0 {
		cmd.Env = append(os.Environ(), e.env...)
	}
}
