package protocol

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// Decode parses one frame payload. Every fixed-size message must match its
// length exactly; strings must be valid UTF-8 within their limit.
func Decode(payload []byte) (Message, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}
	tag := MessageType(payload[0])
	body := payload[1:]

	switch tag {
	case MessageInit:
		if len(body) < 8 {
			return nil, fmt.Errorf("%w: init body %d bytes", ErrInvalidLength, len(body))
		}
		status := MasterStatus(binary.BigEndian.Uint32(body[4:8]))
		if !status.Valid() {
			return nil, fmt.Errorf("%w: %d", ErrInvalidMaster, uint32(status))
		}
		name, err := decodeString(body[8:], MaxNameBytes)
		if err != nil {
			return nil, fmt.Errorf("init name: %w", err)
		}
		return Init{
			Version:      binary.BigEndian.Uint32(body[0:4]),
			MasterStatus: status,
			Name:         name,
		}, nil
	case MessagePlay:
		if len(body) != 9 {
			return nil, fmt.Errorf("%w: play body %d bytes", ErrInvalidLength, len(body))
		}
		first, err := decodeBool(body[0])
		if err != nil {
			return nil, err
		}
		return Play{
			Player1First: first,
			Score0:       binary.BigEndian.Uint32(body[1:5]),
			Score1:       binary.BigEndian.Uint32(body[5:9]),
		}, nil
	case MessageMove:
		if len(body) != 9 {
			return nil, fmt.Errorf("%w: move body %d bytes", ErrInvalidLength, len(body))
		}
		isLeft, err := decodeBool(body[0])
		if err != nil {
			return nil, err
		}
		return Move{
			IsLeft: isLeft,
			X:      binary.BigEndian.Uint32(body[1:5]),
			Y:      binary.BigEndian.Uint32(body[5:9]),
		}, nil
	case MessageChat:
		text, err := decodeString(body, MaxChatBytes)
		if err != nil {
			return nil, fmt.Errorf("chat text: %w", err)
		}
		return Chat{Text: text}, nil
	case MessageError, MessageWin, MessageSurrender:
		if len(body) != 0 {
			return nil, fmt.Errorf("%w: %s body %d bytes", ErrInvalidLength, tag, len(body))
		}
		switch tag {
		case MessageError:
			return Error{}, nil
		case MessageWin:
			return Win{}, nil
		default:
			return Surrender{}, nil
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMessage, uint8(tag))
	}
}

func decodeBool(b byte) (bool, error) {
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: %d", ErrInvalidBool, b)
	}
}

func decodeString(b []byte, maxBytes int) (string, error) {
	if len(b) > maxBytes {
		return "", fmt.Errorf("%w: %d > %d bytes", ErrStringTooLong, len(b), maxBytes)
	}
	if !utf8.Valid(b) {
		return "", ErrInvalidString
	}
	return string(b), nil
}
