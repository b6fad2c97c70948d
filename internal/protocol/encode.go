package protocol

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// Encode returns the frame payload for msg: the tag byte followed by the
// message body.
func Encode(msg Message) ([]byte, error) {
	switch m := msg.(type) {
	case Init:
		if !m.MasterStatus.Valid() {
			return nil, fmt.Errorf("%w: %d", ErrInvalidMaster, m.MasterStatus)
		}
		if err := checkString(m.Name, MaxNameBytes); err != nil {
			return nil, fmt.Errorf("init name: %w", err)
		}
		buf := make([]byte, 0, 9+len(m.Name))
		buf = append(buf, byte(MessageInit))
		buf = binary.BigEndian.AppendUint32(buf, m.Version)
		buf = binary.BigEndian.AppendUint32(buf, uint32(m.MasterStatus))
		return append(buf, m.Name...), nil
	case Play:
		buf := make([]byte, 0, 10)
		buf = append(buf, byte(MessagePlay), boolByte(m.Player1First))
		buf = binary.BigEndian.AppendUint32(buf, m.Score0)
		return binary.BigEndian.AppendUint32(buf, m.Score1), nil
	case Move:
		buf := make([]byte, 0, 10)
		buf = append(buf, byte(MessageMove), boolByte(m.IsLeft))
		buf = binary.BigEndian.AppendUint32(buf, m.X)
		return binary.BigEndian.AppendUint32(buf, m.Y), nil
	case Chat:
		if err := checkString(m.Text, MaxChatBytes); err != nil {
			return nil, fmt.Errorf("chat text: %w", err)
		}
		buf := make([]byte, 0, 1+len(m.Text))
		buf = append(buf, byte(MessageChat))
		return append(buf, m.Text...), nil
	case Error, Win, Surrender:
		return []byte{byte(m.Type())}, nil
	case nil:
		return nil, ErrUnknownMessage
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownMessage, msg)
	}
}

// ValidString reports whether s can travel as a name or chat line of at most
// maxBytes bytes.
func ValidString(s string, maxBytes int) bool {
	return checkString(s, maxBytes) == nil
}

func checkString(s string, maxBytes int) error {
	if len(s) > maxBytes {
		return fmt.Errorf("%w: %d > %d bytes", ErrStringTooLong, len(s), maxBytes)
	}
	if !utf8.ValidString(s) {
		return ErrInvalidString
	}
	return nil
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
