package claude

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	"github.com/xiaoyuanzhu-com/claudechat/log"
)

// DefaultGracePeriod is how long the CLI gets to exit after SIGINT before
// it is killed. The CLI uses the time to flush its transcript.
const DefaultGracePeriod = 2 * time.Second

// Options configures a Client.
type Options struct {
	Path        string
	Timeout     time.Duration
	GracePeriod time.Duration
}

// Client runs the Claude CLI in print mode, one process per message.
type Client struct {
	path    string
	timeout time.Duration
	grace   time.Duration
}

// NewClient creates a client. Zero values fall back to "claude", 90s and DefaultGracePeriod.
func NewClient(opts Options) *Client {
	c := &Client{path: opts.Path, timeout: opts.Timeout, grace: opts.GracePeriod}
	if c.path == "" {
		c.path = "claude"
	}
	if c.timeout <= 0 {
		c.timeout = 90 * time.Second
	}
	if c.grace <= 0 {
		c.grace = DefaultGracePeriod
	}
	return c
}

// Args builds the CLI arguments. The prompt is passed as a single argv entry,
// never through a shell.
func Args(prompt string, continuing bool) []string {
	if continuing {
		return []string{"-c", "-p", prompt}
	}
	return []string{"-p", prompt}
}

// Send runs the CLI and waits for the whole reply. Failures come back as an
// error with an empty Reply; nothing is retried.
func (c *Client) Send(ctx context.Context, prompt string, continuing bool) (Reply, error) {
	return c.Stream(ctx, prompt, continuing, nil)
}

// Stream is Send with onChunk called for each reply line as it arrives.
// Header lines are not passed to onChunk.
func (c *Client) Stream(ctx context.Context, prompt string, continuing bool, onChunk func(string)) (Reply, error) {
	var filter streamFilter
	var onLine func(string)
	if onChunk != nil {
		onLine = func(line string) {
			if chunk, ok := filter.feed(line); ok {
				onChunk(chunk)
			}
		}
	}

	start := time.Now()
	stdout, stderr, err := c.run(ctx, Args(prompt, continuing), onLine)
	if err != nil && !isExitError(err) {
		return Reply{}, err
	}

	if strings.TrimSpace(stdout) == "" {
		if msg := strings.TrimSpace(stderr); msg != "" {
			log.Error().Str("stderr", msg).Msg("claude CLI failed")
			return Reply{}, &ToolError{Stderr: msg, Cause: err}
		}
		if err != nil {
			return Reply{}, &ToolError{Cause: err}
		}
		log.Error().Msg("claude CLI returned no output")
		return Reply{}, ErrEmptyOutput
	}

	reply := ParseOutput(stdout, continuing)
	log.Debug().
		Dur("elapsed", time.Since(start)).
		Int("chars", len(reply.Text)).
		Str("conversationId", reply.ConversationID).
		Msg("claude CLI replied")
	return reply, nil
}

// run starts the CLI, collects stdout line by line, and enforces the timeout.
// On timeout the whole process group is interrupted, then killed after the
// grace period.
func (c *Client) run(ctx context.Context, args []string, onLine func(string)) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.Command(c.path, args...)
	configureProcess(cmd)
	cmd.WaitDelay = c.grace

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", "", fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	log.Debug().Str("path", c.path).Bool("continue", args[0] == "-c").Msg("starting claude CLI")
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return "", "", fmt.Errorf("%w: %s", ErrCLINotFound, c.path)
		}
		return "", "", &ToolError{Cause: err}
	}

	lines := make(chan string, 64)
	go readLines(stdout, lines)

	var out strings.Builder
	for lines != nil {
		select {
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			out.WriteString(line)
			if onLine != nil {
				onLine(line)
			}

		case <-ctx.Done():
			c.terminate(cmd, stdout, lines)
			cmd.Wait()
			return "", "", c.contextErr(ctx)
		}
	}

	// stdout is closed but the process may still be running
	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
	}()
	select {
	case waitErr := <-exited:
		return out.String(), stderr.String(), waitErr
	case <-ctx.Done():
		c.stop(cmd, exited)
		return "", "", c.contextErr(ctx)
	}
}

func (c *Client) contextErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		log.Error().Dur("timeout", c.timeout).Msg("claude CLI timed out")
		return ErrTimeout
	}
	return ctx.Err()
}

// terminate interrupts the process group, waits up to the grace period for
// stdout to close, then kills the group.
func (c *Client) terminate(cmd *exec.Cmd, stdout io.Closer, lines <-chan string) {
	if cmd.Process == nil {
		return
	}
	c.interrupt(cmd)

	timer := time.NewTimer(c.grace)
	defer timer.Stop()
	for {
		select {
		case _, ok := <-lines:
			if !ok {
				return
			}
		case <-timer.C:
			c.kill(cmd)
			stdout.Close()
			for range lines {
			}
			return
		}
	}
}

// stop is terminate for a process that already closed stdout; exited
// receives the result of cmd.Wait.
func (c *Client) stop(cmd *exec.Cmd, exited <-chan error) {
	c.interrupt(cmd)

	timer := time.NewTimer(c.grace)
	defer timer.Stop()
	select {
	case <-exited:
	case <-timer.C:
		c.kill(cmd)
		<-exited
	}
}

func (c *Client) interrupt(cmd *exec.Cmd) {
	if err := interruptGroup(cmd); err != nil {
		log.Debug().Err(err).Int("pid", cmd.Process.Pid).Msg("interrupt failed")
	}
}

func (c *Client) kill(cmd *exec.Cmd) {
	log.Warn().Int("pid", cmd.Process.Pid).Msg("process didn't exit gracefully, sending SIGKILL")
	killGroup(cmd)
}

func readLines(r io.Reader, lines chan<- string) {
	defer close(lines)
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			lines <- line
		}
		if err != nil {
			return
		}
	}
}

func isExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}
