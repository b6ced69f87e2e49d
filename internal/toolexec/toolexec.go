// Package toolexec runs the external collaborators (mirror utility, host
// archive command) and keeps a bounded tail of their output for error
// reports.
package toolexec

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"smedge-submit/internal/model"
)

type OutputStream string

const (
	StreamStdout OutputStream = "stdout"
	StreamStderr OutputStream = "stderr"
)

// Command describes one external process invocation.
type Command struct {
	Name string
	Args []string
	Dir  string

	Stdout     io.Writer
	Stderr     io.Writer
	LogWriter  io.Writer
	EchoOutput bool
	Progress   func(stream OutputStream, line string)
}

// Result is returned whenever the process ran, including non-zero exits.
// Interpreting the exit code is left to the caller since tools disagree on
// what counts as success.
type Result struct {
	Command  []string `json:"command"`
	ExitCode int      `json:"exit_code"`
	Stdout   string   `json:"-"`
	Stderr   string   `json:"-"`
}

// Output joins the kept stderr and stdout tails.
func (r Result) Output() string {
	parts := make([]string, 0, 2)
	if s := strings.TrimSpace(r.Stderr); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(r.Stdout); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, "\n")
}

// Failure builds the ToolError reported for this result.
func (r Result) Failure(tool string, err error) *model.ToolError {
	args := []string{}
	if len(r.Command) > 1 {
		args = append(args, r.Command[1:]...)
	}
	return &model.ToolError{
		Tool:     tool,
		Args:     args,
		ExitCode: r.ExitCode,
		Output:   r.Output(),
		Err:      err,
	}
}

// Run starts the command and waits for it. The returned error is non-nil
// only when the process could not be started or the context ended; a
// non-zero exit is reported through Result.ExitCode.
func Run(ctx context.Context, c Command) (Result, error) {
	if strings.TrimSpace(c.Name) == "" {
		return Result{}, errors.New("command name is required")
	}
	res := Result{Command: append([]string{c.Name}, c.Args...)}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return res, fmt.Errorf("setup stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return res, fmt.Errorf("setup stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return res, res.Failure(c.Name, fmt.Errorf("start: %w", err))
	}

	var outBuf strings.Builder
	var errBuf strings.Builder
	var mu sync.Mutex
	var wg sync.WaitGroup

	read := func(stream OutputStream, r io.Reader, echoW io.Writer) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		buf := make([]byte, 0, 64*1024)
		scanner.Buffer(buf, 1024*1024)
		scanner.Split(splitByNewlineOrCR)
		for scanner.Scan() {
			line := scanner.Text()
			mu.Lock()
			appendLimited(&outBuf, &errBuf, stream, line)
			if c.LogWriter != nil {
				_, _ = io.WriteString(c.LogWriter, line+"\n")
			}
			mu.Unlock()

			if c.EchoOutput && echoW != nil {
				_, _ = io.WriteString(echoW, line+"\n")
			}
			if c.Progress != nil {
				c.Progress(stream, line)
			}
		}
		if err := scanner.Err(); err != nil {
			mu.Lock()
			appendLimited(&outBuf, &errBuf, stream, fmt.Sprintf("[%s output dropped: %v]", stream, err))
			mu.Unlock()
		}
		// Keep draining so the child never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, r)
	}

	wg.Add(2)
	go read(StreamStdout, stdoutPipe, c.Stdout)
	go read(StreamStderr, stderrPipe, c.Stderr)
	wg.Wait()

	waitErr := cmd.Wait()

	mu.Lock()
	res.Stdout = outBuf.String()
	res.Stderr = errBuf.String()
	mu.Unlock()

	if waitErr == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, res.Failure(c.Name, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, res.Failure(c.Name, waitErr)
}

func splitByNewlineOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' || data[i] == '\r' {
			if i == 0 {
				return 1, nil, nil
			}
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func appendLimited(outBuf, errBuf *strings.Builder, stream OutputStream, line string) {
	const maxKeep = 8192
	b := outBuf
	if stream == StreamStderr {
		b = errBuf
	}
	if b.Len() >= maxKeep {
		return
	}
	toWrite := line + "\n"
	remain := maxKeep - b.Len()
	if len(toWrite) > remain {
		toWrite = toWrite[:remain]
	}
	b.WriteString(toWrite)
}
