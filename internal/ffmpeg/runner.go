// Package ffmpeg runs transcoding subprocesses. Each process starts in its
// own process group so cancellation reaches ffmpeg and anything it spawned.
package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const (
	defaultKillGrace = 5 * time.Second
	defaultTailLines = 40
	maxLineBytes     = 1 << 20
)

// Request describes one subprocess invocation.
type Request struct {
	Binary string
	Args   []string
	Dir    string
	// OnLine receives every line of combined stdout and stderr, split on CR or LF.
	OnLine func(line string)
}

// Result captures how the subprocess ended. A non-zero ExitCode is not an error.
type Result struct {
	ExitCode int
	// Tail holds the last output lines for failure reports.
	Tail    []string
	Elapsed time.Duration
}

// Runner launches subprocesses.
type Runner interface {
	Run(ctx context.Context, req Request) (Result, error)
}

// ExecRunner runs real processes via os/exec.
type ExecRunner struct {
	// KillGrace is how long a cancelled process group gets between SIGTERM and SIGKILL.
	KillGrace time.Duration
	TailLines int
}

// NewRunner returns an ExecRunner with the given kill grace.
func NewRunner(killGrace time.Duration) *ExecRunner {
	return &ExecRunner{KillGrace: killGrace}
}

// Run starts the process, streams its combined output line by line, and waits for exit.
// Errors are returned only when the process cannot start or ctx is cancelled.
func (r *ExecRunner) Run(ctx context.Context, req Request) (Result, error) {
	binary := strings.TrimSpace(req.Binary)
	if binary == "" {
		return Result{}, errors.New("ffmpeg run: empty binary")
	}
	grace := r.KillGrace
	if grace <= 0 {
		grace = defaultKillGrace
	}
	tailLines := r.TailLines
	if tailLines <= 0 {
		tailLines = defaultTailLines
	}

	cmd := exec.CommandContext(ctx, binary, req.Args...)
	cmd.Dir = req.Dir
	setProcessGroup(cmd)

	var killTimer *time.Timer
	var timerMu sync.Mutex
	cmd.Cancel = func() error {
		err := signalGroup(cmd, sigTerm)
		timerMu.Lock()
		killTimer = time.AfterFunc(grace, func() { _ = signalGroup(cmd, sigKill) })
		timerMu.Unlock()
		return err
	}
	cmd.WaitDelay = grace + time.Second

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw
	tail := newTailBuffer(tailLines)
	scanDone := make(chan struct{})
	go func() {
		defer close(scanDone)
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		scanner.Split(scanLinesWithCR)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			tail.add(line)
			if req.OnLine != nil {
				req.OnLine(line)
			}
		}
		// Keep draining so the process never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, pr)
	}()

	started := time.Now()
	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		<-scanDone
		return Result{ExitCode: -1}, fmt.Errorf("ffmpeg start: %w", err)
	}
	waitErr := cmd.Wait()
	_ = pw.Close()
	<-scanDone

	timerMu.Lock()
	if killTimer != nil {
		killTimer.Stop()
	}
	timerMu.Unlock()

	result := Result{
		ExitCode: cmd.ProcessState.ExitCode(),
		Tail:     tail.lines(),
		Elapsed:  time.Since(started),
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, ctxErr
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return result, fmt.Errorf("ffmpeg wait: %w", waitErr)
		}
	}
	return result, nil
}

// scanLinesWithCR handles both \r and \n as line delimiters; ffmpeg rewrites
// its status line with bare carriage returns.
func scanLinesWithCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i := 0; i < len(data); i++ {
		if data[i] == '\r' || data[i] == '\n' {
			advance = i + 1
			for advance < len(data) && (data[advance] == '\r' || data[advance] == '\n') {
				advance++
			}
			return advance, data[0:i], nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []string
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (t *tailBuffer) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, line)
	if len(t.buf) > t.limit {
		t.buf = t.buf[len(t.buf)-t.limit:]
	}
}

func (t *tailBuffer) lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.buf...)
}
