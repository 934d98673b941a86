package entity

import (
	"time"
)

// Turn is one message in a conversation. Turns are immutable once appended
// to a conversation log; TurnId is set only for assistant turns.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	TurnId    string    `json:"turnId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
