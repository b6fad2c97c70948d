package protocol

// Version is the protocol version carried in Init.
const Version uint32 = 1

// Size limits for string-carrying messages. Both keep the whole payload
// within one 255 byte frame.
const (
	MaxNameBytes = 246
	MaxChatBytes = 254
)

// MessageType is the first payload byte of every message.
type MessageType uint8

const (
	MessageInit MessageType = iota
	MessageError
	MessagePlay
	MessageMove
	MessageWin
	MessageSurrender
	MessageChat
)

func (t MessageType) String() string {
	switch t {
	case MessageInit:
		return "init"
	case MessageError:
		return "error"
	case MessagePlay:
		return "play"
	case MessageMove:
		return "move"
	case MessageWin:
		return "win"
	case MessageSurrender:
		return "surrender"
	case MessageChat:
		return "chat"
	default:
		return "unknown"
	}
}

// MasterStatus is the first-move decision a side announces in Init.
type MasterStatus uint32

const (
	NotMaster MasterStatus = iota
	MeFirst
	YouFirst
)

func (s MasterStatus) Valid() bool {
	return s <= YouFirst
}

// IsMaster reports whether the side made the coin flip.
func (s MasterStatus) IsMaster() bool {
	return s == MeFirst || s == YouFirst
}

func (s MasterStatus) String() string {
	switch s {
	case NotMaster:
		return "not_master"
	case MeFirst:
		return "me_first"
	case YouFirst:
		return "you_first"
	default:
		return "invalid"
	}
}

// Message is one decoded protocol message.
type Message interface {
	Type() MessageType
}

type Init struct {
	Version      uint32
	MasterStatus MasterStatus
	Name         string
}

type Error struct{}

type Play struct {
	Player1First bool
	Score0       uint32
	Score1       uint32
}

type Move struct {
	IsLeft bool
	X      uint32
	Y      uint32
}

type Win struct{}

type Surrender struct{}

type Chat struct {
	Text string
}

func (Init) Type() MessageType      { return MessageInit }
func (Error) Type() MessageType     { return MessageError }
func (Play) Type() MessageType      { return MessagePlay }
func (Move) Type() MessageType      { return MessageMove }
func (Win) Type() MessageType       { return MessageWin }
func (Surrender) Type() MessageType { return MessageSurrender }
func (Chat) Type() MessageType      { return MessageChat }
