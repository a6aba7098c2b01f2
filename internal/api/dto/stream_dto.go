package dto

import "time"

// StreamSnapshot is one server-sent "snapshot" event. Items holds tickets,
// assignments or feedback depending on Kind.
type StreamSnapshot struct {
	View     string         `json:"view"`
	Seq      uint64         `json:"seq"`
	Kind     string         `json:"kind"`
	Resync   bool           `json:"resync"`
	LoadedAt time.Time      `json:"loaded_at"`
	Changes  []StreamChange `json:"changes"`
	Items    any            `json:"items"`
}

// StreamChange is a mutation that triggered a snapshot.
type StreamChange struct {
	Kind     string    `json:"kind"`
	Op       string    `json:"op"`
	ID       string    `json:"id"`
	TicketID string    `json:"ticket_id,omitempty"`
	At       time.Time `json:"at"`
}
