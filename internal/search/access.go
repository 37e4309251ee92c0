package search

import "strconv"

// AccessContext is an optional access-level restriction applied to a search.
// The zero value is unrestricted: no document is filtered out, whatever its
// access level. A restricted context admits exactly the documents whose
// AccessLevel is at or below the context's level, compared numerically.
// Level-0 documents are public and pass every restriction.
type AccessContext struct {
	level      int
	restricted bool
}

// Unrestricted returns an AccessContext that admits every document.
func Unrestricted() AccessContext {
	return AccessContext{}
}

// AccessAt returns an AccessContext restricted to documents whose access
// level is <= level.
func AccessAt(level int) AccessContext {
	return AccessContext{level: level, restricted: true}
}

// Restricted reports whether the context carries a level restriction.
func (a AccessContext) Restricted() bool {
	return a.restricted
}

// Level returns the restriction ceiling. It is meaningful only when
// Restricted reports true.
func (a AccessContext) Level() int {
	return a.level
}

// Allows reports whether a document with the given access level is visible
// under this context.
func (a AccessContext) Allows(docLevel int) bool {
	if !a.restricted {
		return true
	}
	return docLevel <= a.level
}

// String renders the restriction for logs and cache keys: "any" when
// unrestricted, otherwise "le<level>".
func (a AccessContext) String() string {
	if !a.restricted {
		return "any"
	}
	return "le" + strconv.Itoa(a.level)
}
