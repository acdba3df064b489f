package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/lox/turtlerace/internal/game"
)

var (
	// ErrMalformed is returned for frames that are not a tagged JSON array
	ErrMalformed = errors.New("malformed message")

	// ErrUnknownCommand is returned for a client tag with no handler
	ErrUnknownCommand = errors.New("unknown command")

	// ErrUnknownMessageType is returned for a server tag with no decoder
	ErrUnknownMessageType = errors.New("unknown message type")
)

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// Marshal encodes a server message as [tag] or [tag, payload].
func Marshal(msg ServerMessage) ([]byte, error) {
	var payload any
	switch m := msg.(type) {
	case Error:
		payload = m.Reason
	case Waiting:
		payload = nonNil(m.Names)
	case Joined:
		payload = m.Name
	case Reconnected:
		payload = m.Name
	case Starting:
		return json.Marshal([1]Tag{TagStarting})
	case Started:
		m.Player.Cards = nonNil(m.Player.Cards)
		payload = m
	case Cards:
		payload = nonNil(m.Hand)
	case Played:
		payload = m
	case Done:
		m.Winners = nonNil(m.Winners)
		payload = m
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownMessageType, msg)
	}
	return json.Marshal([2]any{msg.Tag(), payload})
}

// splitTagged breaks a frame into its tag and remaining elements.
func splitTagged(data []byte) (string, []json.RawMessage, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return "", nil, malformed("%v", err)
	}
	if len(parts) == 0 {
		return "", nil, malformed("empty array")
	}
	var tag string
	if err := json.Unmarshal(parts[0], &tag); err != nil {
		return "", nil, malformed("tag is not a string")
	}
	return tag, parts[1:], nil
}

// DecodeClient parses a client command. Unknown tags return
// ErrUnknownCommand; anything else that does not fit returns ErrMalformed.
func DecodeClient(data []byte) (ClientMessage, error) {
	tag, args, err := splitTagged(data)
	if err != nil {
		return ClientMessage{}, err
	}

	switch cmd := Command(tag); cmd {
	case CommandStart, CommandLatest:
		return ClientMessage{Command: cmd}, nil

	case CommandPlay:
		if len(args) < 1 {
			return ClientMessage{}, malformed("play needs a card index")
		}
		var index float64
		if err := json.Unmarshal(args[0], &index); err != nil {
			return ClientMessage{}, malformed("card index is not a number")
		}
		if index != math.Trunc(index) || math.Abs(index) > math.MaxInt32 {
			return ClientMessage{}, malformed("card index %v is not an integer", index)
		}
		msg := ClientMessage{Command: cmd, CardIndex: int(index)}
		if len(args) > 1 {
			var wildcard *string
			if err := json.Unmarshal(args[1], &wildcard); err != nil {
				return ClientMessage{}, malformed("wildcard turtle is not a string")
			}
			if wildcard != nil {
				msg.Wildcard = game.Turtle(*wildcard)
			}
		}
		return msg, nil

	default:
		return ClientMessage{}, fmt.Errorf("%w: %q", ErrUnknownCommand, tag)
	}
}

// MarshalJSON encodes the command in its wire form.
func (m ClientMessage) MarshalJSON() ([]byte, error) {
	switch m.Command {
	case CommandPlay:
		if m.Wildcard != "" {
			return json.Marshal([]any{m.Command, m.CardIndex, m.Wildcard})
		}
		return json.Marshal([]any{m.Command, m.CardIndex})
	default:
		return json.Marshal([]any{m.Command})
	}
}

// DecodeServer parses a server event.
func DecodeServer(data []byte) (ServerMessage, error) {
	tag, args, err := splitTagged(data)
	if err != nil {
		return nil, err
	}

	if Tag(tag) == TagStarting {
		return Starting{}, nil
	}
	if len(args) < 1 {
		return nil, malformed("%s has no payload", tag)
	}
	payload := args[0]

	var msg ServerMessage
	switch Tag(tag) {
	case TagError:
		var m Error
		err = json.Unmarshal(payload, &m.Reason)
		msg = m
	case TagWaiting:
		var m Waiting
		err = json.Unmarshal(payload, &m.Names)
		msg = m
	case TagJoined:
		var m Joined
		err = json.Unmarshal(payload, &m.Name)
		msg = m
	case TagReconnected:
		var m Reconnected
		err = json.Unmarshal(payload, &m.Name)
		msg = m
	case TagStarted:
		var m Started
		err = json.Unmarshal(payload, &m)
		msg = m
	case TagCards:
		var m Cards
		err = json.Unmarshal(payload, &m.Hand)
		msg = m
	case TagPlayed:
		var m Played
		err = json.Unmarshal(payload, &m)
		msg = m
	case TagDone:
		var m Done
		err = json.Unmarshal(payload, &m)
		msg = m
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, tag)
	}
	if err != nil {
		return nil, malformed("%s: %v", tag, err)
	}
	return msg, nil
}
