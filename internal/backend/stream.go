package backend

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
)

// EventKind is the closed set of stream event kinds produced by a Source.
type EventKind int

const (
	// EventThought carries an incremental fragment of model reasoning.
	EventThought EventKind = iota
	// EventAction carries a human-readable description of a tool invocation.
	EventAction
	// EventFinal carries an incremental fragment of the final response text.
	EventFinal
	// EventCompleted marks successful termination of the stream.
	EventCompleted
	// EventFailed marks abnormal termination of the stream.
	EventFailed
)

// String returns a human-readable kind name.
func (k EventKind) String() string {
	switch k {
	case EventThought:
		return "thought"
	case EventAction:
		return "action"
	case EventFinal:
		return "final"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal returns true for the two terminal kinds.
func (k EventKind) Terminal() bool {
	return k == EventCompleted || k == EventFailed
}

// StreamEvent is one incremental unit produced while a subtask executes.
// Exactly one Source produces events for a subtask; exactly one runner
// consumes them. Text is empty for terminal kinds; Err is set only on
// EventFailed.
type StreamEvent struct {
	// SubtaskID is the owning subtask's identifier.
	SubtaskID string
	// Kind is the event kind.
	Kind EventKind
	// Text is the fragment payload for non-terminal kinds.
	Text string
	// Err holds failure details for EventFailed events.
	Err error
}

// Source produces a lazy sequence of stream events for one subtask.
// The channel yields zero or more fragment events followed by exactly one
// terminal event, then closes.
type Source interface {
	Events() <-chan StreamEvent
}

// SourceFactory opens a stream source for a subtask instruction.
// The orchestrator uses it so tests can substitute scripted sources.
type SourceFactory func(ctx context.Context, subtaskID, instruction, engine string) Source

// ClaudeSource adapts the Anthropic streaming Messages API into the
// StreamEvent sequence consumed by a subtask runner.
type ClaudeSource struct {
	events chan StreamEvent
}

// streamBufferSize bounds the event channel so a slow consumer does not
// grow memory without limit; the SDK paces the producer.
const streamBufferSize = 100

// OpenStream starts a streaming request for the given instruction and
// returns a Source yielding its events. The stream runs until the backend
// finishes or fails; the terminal event is always delivered before the
// channel closes.
func (c *Client) OpenStream(ctx context.Context, subtaskID, instruction, engine string) Source {
	s := &ClaudeSource{
		events: make(chan StreamEvent, streamBufferSize),
	}

	go c.stream(ctx, s, subtaskID, instruction, engine)

	return s
}

// Events returns the event channel for this source.
func (s *ClaudeSource) Events() <-chan StreamEvent {
	return s.events
}

// stream drives the SDK stream and converts its events.
func (c *Client) stream(ctx context.Context, s *ClaudeSource, subtaskID, instruction, engine string) {
	defer close(s.events)

	emit := func(ev StreamEvent) bool {
		select {
		case s.events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	stream := c.sdk().Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     c.ResolveModel(engine),
		MaxTokens: 8192,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(instruction)),
		},
	})

	message := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			emit(StreamEvent{
				SubtaskID: subtaskID,
				Kind:      EventFailed,
				Err:       fmt.Errorf("accumulate stream event: %w", err),
			})
			return
		}

		switch eventVariant := event.AsAny().(type) {
		case anthropic.ContentBlockStartEvent:
			if block, ok := eventVariant.ContentBlock.AsAny().(anthropic.ToolUseBlock); ok {
				if !emit(StreamEvent{
					SubtaskID: subtaskID,
					Kind:      EventAction,
					Text:      describeTool(block.Name),
				}) {
					return
				}
			}
		case anthropic.ContentBlockDeltaEvent:
			switch deltaVariant := eventVariant.Delta.AsAny().(type) {
			case anthropic.ThinkingDelta:
				if !emit(StreamEvent{
					SubtaskID: subtaskID,
					Kind:      EventThought,
					Text:      deltaVariant.Thinking,
				}) {
					return
				}
			case anthropic.TextDelta:
				if !emit(StreamEvent{
					SubtaskID: subtaskID,
					Kind:      EventFinal,
					Text:      deltaVariant.Text,
				}) {
					return
				}
			}
		}
	}

	if err := stream.Err(); err != nil {
		emit(StreamEvent{
			SubtaskID: subtaskID,
			Kind:      EventFailed,
			Err:       fmt.Errorf("stream terminated: %w", err),
		})
		return
	}

	c.tracker.Add(message.Usage.InputTokens, message.Usage.OutputTokens)

	emit(StreamEvent{
		SubtaskID: subtaskID,
		Kind:      EventCompleted,
	})
}

// describeTool formats a tool name into a short display string.
func describeTool(name string) string {
	switch name {
	case "web_search":
		return "Searching the web"
	case "code_execution":
		return "Running code"
	default:
		if name == "" {
			return "Using tool"
		}
		return "Using " + name
	}
}
