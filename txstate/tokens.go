package txstate

import "sort"

// Token pairs a newly introduced name with the id assigned to it this
// transaction.
type Token struct {
	Name string
	ID   int32
}

// tokenTable accumulates the (name, id) pairs introduced by one kind of
// *DoCreateForName call this transaction (label, property key, or
// relationship type). Commit emits these in id order (spec.md §4.7 step 10).
type tokenTable struct {
	tokens map[int32]string
}

func (t *tokenTable) create(name string, id int32) {
	if t.tokens == nil {
		t.tokens = make(map[int32]string)
	}
	t.tokens[id] = name
}

func (t *tokenTable) hasChanges() bool { return t != nil && len(t.tokens) > 0 }

// sorted returns the accumulated tokens ordered by id, matching spec.md
// §4.7's "each in id order".
func (t *tokenTable) sorted() []Token {
	if t == nil || len(t.tokens) == 0 {
		return nil
	}
	out := make([]Token, 0, len(t.tokens))
	for id, name := range t.tokens {
		out = append(out, Token{Name: name, ID: id})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
