// SPDX-License-Identifier: AGPL-3.0-or-later

package blame

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// PathPlaceholder marks where the file path goes in CommandAnnotator.Args.
// When no argument is the placeholder the path is appended.
const PathPlaceholder = "{}"

// DefaultTimeout bounds a single annotation.
const DefaultTimeout = 2 * time.Minute

// Grace period for output pipes after the command is killed.
const waitDelay = 5 * time.Second

// Credentials are passed to the annotation command when set.
type Credentials struct {
	Username string
	Password string
}

// IsZero reports whether no credentials were given.
func (c Credentials) IsZero() bool {
	return c.Username == "" && c.Password == ""
}

// CommandAnnotator runs an external command per file and parses its output
// with ParseAnnotation.
type CommandAnnotator struct {
	Name    string
	Args    []string
	Timeout time.Duration // Zero disables the timeout
}

// NewCommandAnnotator returns an annotator running argv, which must not be empty.
func NewCommandAnnotator(argv []string, timeout time.Duration) *CommandAnnotator {
	return &CommandAnnotator{
		Name:    argv[0],
		Args:    append([]string(nil), argv[1:]...),
		Timeout: timeout,
	}
}

// NewSVNAnnotator runs `svn annotate`, ignoring whitespace-only changes.
func NewSVNAnnotator(creds Credentials, timeout time.Duration) *CommandAnnotator {
	args := []string{"annotate", "-x", "-b", PathPlaceholder, "--non-interactive"}
	if creds.Password != "" {
		args = append(args,
			"--username", creds.Username,
			"--password", creds.Password,
			"--no-auth-cache",
		)
	}

	return &CommandAnnotator{
		Name:    "svn",
		Args:    args,
		Timeout: timeout,
	}
}

func (a *CommandAnnotator) argv(path string) []string {
	args := make([]string, 0, len(a.Args)+1)
	substituted := false
	for _, arg := range a.Args {
		if arg == PathPlaceholder {
			args = append(args, path)
			substituted = true
			continue
		}
		args = append(args, arg)
	}
	if !substituted {
		args = append(args, path)
	}
	return args
}

// Annotate runs the command for path.
func (a *CommandAnnotator) Annotate(ctx context.Context, path string) (*FileBlame, error) {
	if path == "" {
		return nil, &AnnotateError{Kind: KindProcess, Detail: "path must not be empty"}
	}

	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, a.Name, a.argv(path)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	// Args may carry a password, so only the binary is logged.
	logger().Debug("running annotation", "cmd", a.Name, "path", path)

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, &AnnotateError{
			Kind:   KindTimeout,
			Path:   path,
			Detail: "no result after " + a.Timeout.String(),
			Err:    ctx.Err(),
		}
	}
	if err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return nil, &AnnotateError{Kind: KindCommand, Path: path, Detail: detail, Err: err}
	}

	fb, err := ParseAnnotation(&stdout)
	if err != nil {
		return nil, &AnnotateError{Kind: KindParse, Path: path, Detail: err.Error(), Err: err}
	}

	return fb, nil
}
