// Package session owns a conversation: the ordered turn log, the bound tools,
// and the streaming loop that answers the model's tool calls. Sessions fork
// into independent branches that share prior history by value and the live
// dashboard store through rebound tools, but no future mutable state.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sidebot/internal/provider"
	"sidebot/internal/tools"
)

// maxToolRounds bounds the tool loop within one stream call.
const maxToolRounds = 16

// Turn is one message of the conversation. Assistant turns may carry tool
// calls; tool turns carry the results that answer them.
type Turn = provider.Message

// ProviderError wraps an LLM provider failure. It escapes to the session
// caller because no in-band recovery is possible; the session itself stays
// usable for the next input.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error: %v", e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Session is a single conversation bound to one provider client and one tool
// registry. One Stream runs at a time; concurrent calls serialize.
type Session struct {
	id           string
	systemPrompt string
	client       provider.Client
	binder       *tools.Binder
	logger       *zap.Logger

	mu       sync.Mutex
	turns    []Turn
	registry *tools.Registry
	recorder *tools.Recorder
}

// New creates a session with an empty turn log. The binder supplies the tool
// registry; every registry it builds routes the mutating tool to the same
// dashboard store.
func New(client provider.Client, systemPrompt string, binder *tools.Binder, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	recorder := tools.NewRecorder()
	return &Session{
		id:           uuid.NewString(),
		systemPrompt: systemPrompt,
		client:       client,
		binder:       binder,
		logger:       logger,
		registry:     binder.Bind(recorder),
		recorder:     recorder,
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// SystemPrompt returns the session's system prompt.
func (s *Session) SystemPrompt() string {
	return s.systemPrompt
}

// Recorder returns the per-session log of update_dashboard calls.
func (s *Session) Recorder() *tools.Recorder {
	return s.recorder
}

// TurnCount returns the number of turns in the log.
func (s *Session) TurnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// History returns a deep copy of the turn log.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTurns(s.turns)
}

// Fork creates an independent session: same system prompt, model, and
// provider client, a value copy of the history at fork time, and a fresh
// registry from the same binder so the mutating tool still reaches the live
// dashboard store. Turns added to either session after the fork are invisible
// to the other.
func (s *Session) Fork() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	recorder := tools.NewRecorder()
	forked := &Session{
		id:           uuid.NewString(),
		systemPrompt: s.systemPrompt,
		client:       s.client,
		binder:       s.binder,
		logger:       s.logger,
		turns:        cloneTurns(s.turns),
		registry:     s.binder.Bind(recorder),
		recorder:     recorder,
	}

	s.logger.Debug("forked session",
		zap.String("parent", s.id),
		zap.String("fork", forked.id),
		zap.Int("turns", len(forked.turns)))
	return forked
}

// Stream appends the user turn and produces the model's response as a lazy
// sequence of text fragments. Tool calls requested mid-stream are executed
// synchronously and their results appended before the model continues. If the
// first provider call fails, the log holds only the user's own turn; the
// error arrives on the error channel and the session remains usable.
func (s *Session) Stream(ctx context.Context, input string) (<-chan string, <-chan error) {
	fragments := make(chan string, 16)
	errc := make(chan error, 1)

	go func() {
		defer close(fragments)
		defer close(errc)

		s.mu.Lock()
		defer s.mu.Unlock()

		s.turns = append(s.turns, Turn{Role: provider.RoleUser, Text: input})

		for round := 0; round < maxToolRounds; round++ {
			resp, err := s.client.CompleteTurn(ctx, provider.TurnRequest{
				System:   s.systemPrompt,
				Messages: cloneTurns(s.turns),
				Tools:    s.registry.Definitions(),
			})
			if err != nil {
				errc <- &ProviderError{Err: err}
				return
			}

			s.turns = append(s.turns, Turn{
				Role:      provider.RoleAssistant,
				Text:      resp.Text,
				ToolCalls: resp.ToolCalls,
			})

			if resp.Text != "" {
				select {
				case fragments <- resp.Text:
				case <-ctx.Done():
					errc <- ctx.Err()
					return
				}
			}

			if len(resp.ToolCalls) == 0 {
				return
			}

			// Answer every tool call before the next provider round so the
			// log never holds a dangling unanswered call.
			results := make([]provider.ToolResult, len(resp.ToolCalls))
			for i, call := range resp.ToolCalls {
				content, err := s.registry.Execute(ctx, call.Name, call.Input)
				if err != nil {
					content = err.Error()
				}
				results[i] = provider.ToolResult{
					ToolCallID: call.ID,
					Name:       call.Name,
					Content:    content,
					IsError:    err != nil,
				}
			}
			s.turns = append(s.turns, Turn{Role: provider.RoleTool, ToolResults: results})
		}

		errc <- fmt.Errorf("tool loop did not settle after %d rounds", maxToolRounds)
	}()

	return fragments, errc
}

// cloneTurns copies the turn slice deeply enough that no mutable structure is
// shared: tool-call input maps are duplicated.
func cloneTurns(turns []Turn) []Turn {
	out := make([]Turn, len(turns))
	for i, t := range turns {
		copied := t
		if len(t.ToolCalls) > 0 {
			copied.ToolCalls = make([]provider.ToolCall, len(t.ToolCalls))
			for j, call := range t.ToolCalls {
				callCopy := call
				if call.Input != nil {
					callCopy.Input = make(map[string]any, len(call.Input))
					for k, v := range call.Input {
						callCopy.Input[k] = v
					}
				}
				copied.ToolCalls[j] = callCopy
			}
		}
		if len(t.ToolResults) > 0 {
			copied.ToolResults = append([]provider.ToolResult(nil), t.ToolResults...)
		}
		out[i] = copied
	}
	return out
}
