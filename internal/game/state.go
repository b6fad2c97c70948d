package game

type State uint8

const (
	StateAwaitingInit State = iota
	StateReady
	StateReadyPeerRequestedPlay
	StatePlaying
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAwaitingInit:
		return "awaiting_init"
	case StateReady:
		return "ready"
	case StateReadyPeerRequestedPlay:
		return "ready_peer_requested_play"
	case StatePlaying:
		return "playing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time copy of the session for status reporting.
type Snapshot struct {
	SessionID    string    `json:"session_id"`
	State        string    `json:"state"`
	Master       string    `json:"master"`
	Player       int       `json:"player"`
	Names        [2]string `json:"names"`
	Score        [2]uint32 `json:"score"`
	Player1First bool      `json:"player1_first"`
	Playing      bool      `json:"playing"`
	YourMove     bool      `json:"your_move"`
	BoardScore   [2]int    `json:"board_score"`
}
