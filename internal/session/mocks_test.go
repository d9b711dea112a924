package session

import (
	"context"
	"sync"

	"sidebot/internal/provider"
)

// scriptedClient replays a fixed sequence of turns and records every request
// it receives. Once the script is exhausted it returns plain text so the tool
// loop settles.
type scriptedClient struct {
	mu       sync.Mutex
	script   []scriptStep
	requests []provider.TurnRequest
}

type scriptStep struct {
	resp *provider.TurnResponse
	err  error
}

func (c *scriptedClient) Name() string  { return "scripted" }
func (c *scriptedClient) Model() string { return "scripted-1" }

func (c *scriptedClient) CompleteTurn(_ context.Context, req provider.TurnRequest) (*provider.TurnResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = append(c.requests, req)
	if len(c.script) == 0 {
		return &provider.TurnResponse{Text: "done", StopReason: "end_turn"}, nil
	}
	step := c.script[0]
	c.script = c.script[1:]
	if step.err != nil {
		return nil, step.err
	}
	return step.resp, nil
}

func (c *scriptedClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func (c *scriptedClient) request(i int) provider.TurnRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests[i]
}

// drain collects the full stream output, returning the concatenated text and
// the first error, if any.
func drain(fragments <-chan string, errc <-chan error) (string, error) {
	var text string
	for f := range fragments {
		text += f
	}
	return text, <-errc
}
