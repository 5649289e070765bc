package concept

// AttributeKey is the match attribute that links a passage to a concept.
const AttributeKey = "concept_id"

// Concept is a curriculum concept referenced by FAQ, glossary and textbook passages.
type Concept struct {
	ID      string
	Name    string
	Summary string
}

// IsZero reports whether the concept is unset.
func (c Concept) IsZero() bool { return c.ID == "" }
