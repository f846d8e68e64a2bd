package bot

import "sync"

// State is where a chat is in a multi-step exchange. Only StateStart exists
// today; every chat begins there and stays there.
type State int

const (
	StateStart State = iota
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	default:
		return "unknown"
	}
}

// Dialogues stores one State per chat.
type Dialogues struct {
	mu     sync.RWMutex
	states map[int64]State
}

func NewDialogues() *Dialogues {
	return &Dialogues{states: make(map[int64]State)}
}

// Get returns the chat's state, StateStart if none was recorded.
func (d *Dialogues) Get(chatID int64) State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if s, ok := d.states[chatID]; ok {
		return s
	}
	return StateStart
}

func (d *Dialogues) Set(chatID int64, s State) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s == StateStart {
		delete(d.states, chatID)
		return
	}
	d.states[chatID] = s
}

func (d *Dialogues) Reset(chatID int64) {
	d.Set(chatID, StateStart)
}
