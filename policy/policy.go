// Package policy decides whether an acting identity may perform an
// operation on a record. It is a pure predicate over the request context:
// no store access, no side effects.
package policy

// Identity is the identity a request is authenticated as. The zero value
// is the anonymous caller.
type Identity struct {
	UserID   int
	Username string
}

func (id Identity) Anonymous() bool {
	return id.UserID == 0
}

// Operation classifies what a request wants to do with a record.
type Operation int

const (
	OpRead Operation = iota
	OpCreate
	OpModify // update or delete
)

// Allow reports whether actor may perform op on a record authored by
// authorID. It is the conjunction of two independent predicates:
// authenticated-or-read-only, and author-only for modification. For OpRead
// and OpCreate the authorID argument is ignored.
func Allow(actor Identity, op Operation, authorID int) bool {
	return authenticatedOrReadOnly(actor, op) && isAuthor(actor, op, authorID)
}

func authenticatedOrReadOnly(actor Identity, op Operation) bool {
	return op == OpRead || !actor.Anonymous()
}

func isAuthor(actor Identity, op Operation, authorID int) bool {
	if op != OpModify {
		return true
	}
	return actor.UserID == authorID
}
