package logstream

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/pkarvinen/dacsync/internal/errors"
)

// rateBuffer bounds the queue between the feed and the consumer. The feed
// must keep draining the child process regardless of consumer speed, so a
// full buffer drops readings instead of blocking.
const rateBuffer = 256

// Backoff bounds for restarting the log stream process.
const (
	initialRestartDelay = time.Second
	maxRestartDelay     = 30 * time.Second
)

// Message fragments that select rate-bearing log lines from the player
// process.
var messageFilters = []string{
	"activeFormat",
	"subaq_buildCAAudioQueue",
	"FigStreamPlayer",
	"asbdSampleRate",
}

// Monitor runs the system log feed for the player process and emits
// normalized sample rate readings. The child process is supervised for the
// lifetime of the context and restarted with backoff if it exits.
type Monitor struct {
	binary  string
	process string
	out     chan int
	logger  *slog.Logger
}

// NewMonitor returns a Monitor for the given log binary and player process
// name.
func NewMonitor(binary, process string) *Monitor {
	return &Monitor{
		binary:  binary,
		process: process,
		out:     make(chan int, rateBuffer),
		logger:  slog.Default().With("service", "logstream"),
	}
}

// Rates returns the channel sample rate readings are delivered on. It is
// closed when Start returns.
func (m *Monitor) Rates() <-chan int {
	return m.out
}

// predicate builds the log stream filter for the player process.
func (m *Monitor) predicate() string {
	clauses := make([]string, 0, len(messageFilters))
	for _, filter := range messageFilters {
		clauses = append(clauses, fmt.Sprintf("process == %q AND message CONTAINS %q", m.process, filter))
	}
	return strings.Join(clauses, " OR ")
}

// Start runs the feed until ctx is cancelled, restarting the child process
// with exponential backoff on exit. It always returns ctx.Err().
func (m *Monitor) Start(ctx context.Context) error {
	defer close(m.out)

	delay := initialRestartDelay
	for {
		started := time.Now()
		err := m.stream(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// A feed that survived for a while earns a fresh backoff.
		if time.Since(started) > time.Minute {
			delay = initialRestartDelay
		}
		m.logger.Warn("log stream exited, restarting",
			"error", err, "delay", delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxRestartDelay {
			delay = maxRestartDelay
		}
	}
}

// stream runs one child process to completion, draining its output.
func (m *Monitor) stream(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, m.binary,
		"stream", "--predicate", m.predicate(), "--style", "compact")

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Newf("log stream stdout pipe: %w", err).
			Category(errors.CategoryLogStream).
			Component("logstream").
			Build()
	}

	if err := cmd.Start(); err != nil {
		return errors.Newf("starting log stream: %w", err).
			Category(errors.CategoryLogStream).
			Component("logstream").
			Context("binary", m.binary).
			Build()
	}
	m.logger.Debug("log stream started", "pid", cmd.Process.Pid, "process", m.process)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		rate, ok := ParseLine(scanner.Text())
		if !ok {
			continue
		}
		select {
		case m.out <- rate:
		default:
			// Consumer is behind; keep draining the feed regardless.
			m.logger.Debug("rate buffer full, dropping reading", "rate", rate)
		}
	}

	waitErr := cmd.Wait()
	if scanErr := scanner.Err(); scanErr != nil && waitErr == nil {
		waitErr = scanErr
	}
	return errors.New(waitErr).
		Category(errors.CategoryLogStream).
		Component("logstream").
		Build()
}
