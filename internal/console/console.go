// Package console feeds operator command lines into the game loop. Sources
// (stdin, TCP sessions) run in their own goroutines; each line becomes a
// Request that the game loop answers exactly once.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// Request is one command line waiting for the game loop.
type Request struct {
	Line   string
	Source string
	reply  chan response
}

type response struct {
	text string
	err  error
}

// Reply answers the request. Only the first call has an effect.
func (r Request) Reply(text string, err error) {
	select {
	case r.reply <- response{text, err}:
	default:
	}
}

type Console struct {
	requests chan Request
	log      *zap.Logger
}

// New creates a console whose request queue holds up to queue lines.
func New(queue int, log *zap.Logger) *Console {
	if queue <= 0 {
		queue = 16
	}
	return &Console{requests: make(chan Request, queue), log: log}
}

// Requests returns the channel the game loop drains.
func (c *Console) Requests() <-chan Request { return c.requests }

// Submit queues line and waits for the game loop's answer.
func (c *Console) Submit(ctx context.Context, source, line string) (string, error) {
	req := Request{Line: line, Source: source, reply: make(chan response, 1)}
	select {
	case c.requests <- req:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	select {
	case resp := <-req.reply:
		return resp.text, resp.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// ServeReader executes every line read from r and writes the answers to w.
// It returns nil at EOF.
func (c *Console) ServeReader(ctx context.Context, source string, r io.Reader, w io.Writer) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		text, err := c.Submit(ctx, source, line)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			c.log.Debug("console command failed", zap.String("source", source), zap.String("line", line), zap.Error(err))
			text = "error: " + err.Error()
		}
		if text == "" {
			continue
		}
		if _, werr := fmt.Fprintln(w, text); werr != nil {
			return fmt.Errorf("console %s write: %w", source, werr)
		}
	}
	if err := sc.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("console %s read: %w", source, err)
	}
	return nil
}
