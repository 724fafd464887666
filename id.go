package automaton

import "github.com/automatonhq/automaton/id"

// ID is the primary identifier type for all automaton entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
