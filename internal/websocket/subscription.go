package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownAction is returned for control messages with an unsupported action
var ErrUnknownAction = errors.New("unknown action")

// Control message actions a client may send
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
	ActionReset       = "reset"
)

// ControlMessage is what a client sends to narrow the events it receives,
// e.g. {"action":"subscribe","entities":["balances","budget"]}
type ControlMessage struct {
	Action   string       `json:"action"`
	Entities []EntityType `json:"entities"`
}

// ParseControlMessage decodes a client frame
func ParseControlMessage(data []byte) (ControlMessage, error) {
	var msg ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ControlMessage{}, fmt.Errorf("decode control message: %w", err)
	}
	switch msg.Action {
	case ActionSubscribe, ActionUnsubscribe, ActionReset:
	default:
		return ControlMessage{}, fmt.Errorf("%w: %q", ErrUnknownAction, msg.Action)
	}
	for _, e := range msg.Entities {
		if !e.IsValid() {
			return ControlMessage{}, fmt.Errorf("unknown entity %q", e)
		}
	}
	return msg, nil
}

// Subscription is the set of entities a client listens to.
// The zero value receives everything.
type Subscription struct {
	mu       sync.RWMutex
	entities map[EntityType]bool
}

// Apply updates the subscription from a control message
func (s *Subscription) Apply(msg ControlMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch msg.Action {
	case ActionReset:
		s.entities = nil
	case ActionSubscribe:
		if s.entities == nil {
			s.entities = make(map[EntityType]bool, len(msg.Entities))
		}
		for _, e := range msg.Entities {
			s.entities[e] = true
		}
	case ActionUnsubscribe:
		if s.entities == nil {
			// Everything except the named entities
			s.entities = make(map[EntityType]bool, len(allEntities))
			for _, e := range allEntities {
				s.entities[e] = true
			}
		}
		for _, e := range msg.Entities {
			delete(s.entities, e)
		}
	}
}

// Wants reports whether events about entity should be delivered
func (s *Subscription) Wants(entity EntityType) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.entities == nil {
		return true
	}
	return s.entities[entity]
}
