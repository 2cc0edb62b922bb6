package domain

import (
	"encoding/json"
	"fmt"
)

// Push-channel event names. The set is closed: anything else is a protocol
// error at the decoding boundary, never a silent drop.
const (
	EventInitPromptList = "init_prompt_list"
	EventNewPrompt      = "new_prompt"
	EventPromptDeleted  = "prompt_deleted"
)

// InitPromptListEvent carries the full snapshot to a freshly connected
// subscriber. Degraded signals that the relay's startup fill failed and the
// snapshot may be incomplete.
type InitPromptListEvent struct {
	Event    string   `json:"event"`
	Prompts  []Prompt `json:"prompts"`
	Degraded bool     `json:"degraded,omitempty"`
}

// NewPromptEvent announces one created prompt.
type NewPromptEvent struct {
	Event  string `json:"event"`
	Prompt Prompt `json:"prompt"`
}

// PromptDeletedEvent announces one deleted prompt id.
type PromptDeletedEvent struct {
	Event     string `json:"event"`
	DeletedID int64  `json:"deleted_id"`
}

// DecodeEvent parses a raw push-channel frame into one of the typed events.
// Returns an error for unknown or malformed events.
func DecodeEvent(data []byte) (any, error) {
	var envelope struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("malformed event frame: %w", err)
	}

	switch envelope.Event {
	case EventInitPromptList:
		var ev InitPromptListEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("malformed %s event: %w", envelope.Event, err)
		}
		return ev, nil
	case EventNewPrompt:
		var ev NewPromptEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("malformed %s event: %w", envelope.Event, err)
		}
		return ev, nil
	case EventPromptDeleted:
		var ev PromptDeletedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("malformed %s event: %w", envelope.Event, err)
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("unknown event %q", envelope.Event)
	}
}
