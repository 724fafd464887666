package automaton

import "time"

// Entity holds the audit timestamps shared by all persisted automaton
// entities. Embed it in entity structs; stores maintain both fields.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
