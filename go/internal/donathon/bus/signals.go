package bus

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mcdev12/donathon/go/internal/donathon/overlay"
)

// Subject suffixes published by the host under the configured prefix
const (
	SubjectConnected = "connected"
	SubjectUserstore = "userstore"
	SubjectEvent     = "event"
)

var (
	ErrUnknownSubject = errors.New("unknown subject")
	ErrMalformed      = errors.New("malformed message")
)

// Signal is a decoded host message: Snapshot, Delta or Event
type Signal interface {
	signal()
}

// Snapshot is the full userstore, delivered on (re)connection
type Snapshot struct {
	Userstore map[string]string
}

// Delta is a single userstore key update
type Delta struct {
	Key   string
	Value string
}

// Event is a domain event such as a donation
type Event struct {
	overlay.Event
}

func (Snapshot) signal() {}
func (Delta) signal()    {}
func (Event) signal()    {}

// Subject joins the prefix and a subject suffix
func Subject(prefix, suffix string) string {
	return prefix + "." + suffix
}

// Decode parses the payload of a message received on subject. Only the last
// subject token is significant; the prefix is enforced by the consumer filter.
func Decode(subject string, data []byte) (Signal, error) {
	switch suffixOf(subject) {
	case SubjectConnected:
		var env struct {
			Userstore map[string]any `json:"userstore"`
		}
		if err := decodeJSON(data, &env); err != nil {
			return nil, err
		}
		store := make(map[string]string, len(env.Userstore))
		for k, v := range env.Userstore {
			s, ok := scalar(v)
			if !ok {
				continue
			}
			store[k] = s
		}
		return Snapshot{Userstore: store}, nil

	case SubjectUserstore:
		var env struct {
			Key   string `json:"key"`
			Value any    `json:"value"`
		}
		if err := decodeJSON(data, &env); err != nil {
			return nil, err
		}
		if env.Key == "" {
			return nil, fmt.Errorf("%w: missing key", ErrMalformed)
		}
		value, ok := scalar(env.Value)
		if !ok {
			return nil, fmt.Errorf("%w: value for %s is not a scalar", ErrMalformed, env.Key)
		}
		return Delta{Key: env.Key, Value: value}, nil

	case SubjectEvent:
		var env overlay.Event
		if err := decodeJSON(data, &env); err != nil {
			return nil, err
		}
		if env.Type == "" {
			return nil, fmt.Errorf("%w: missing event type", ErrMalformed)
		}
		if env.Data == nil {
			env.Data = map[string]any{}
		}
		return Event{Event: env}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSubject, subject)
	}
}

func suffixOf(subject string) string {
	if i := strings.LastIndexByte(subject, '.'); i >= 0 {
		return subject[i+1:]
	}
	return subject
}

// decodeJSON keeps numbers as their literal text so "5.00" stays "5.00"
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return nil
}

// scalar turns a userstore JSON value into the string form the store keeps.
// null becomes "" which reads as "unset" for timestamps.
func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		if t {
			return "true", true
		}
		return "false", true
	default:
		return "", false
	}
}
