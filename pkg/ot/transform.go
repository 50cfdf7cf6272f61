package ot

import "fmt"

// After rebases a so that it applies correctly in a world where b has
// already happened. It returns (nil, nil) when a is fully subsumed by b
// (the D-after-D case where b already covered a's range) — the caller
// should treat a nil op as a no-op, not as an error.
//
// When After moves or resizes a delete, the result's Delete.Text is nil:
// After does not recompute what text a rebased delete would remove (see
// spec §4.3). A delete returned unchanged keeps its Text.
func After(a, b Op) (Op, error) {
	switch av := a.(type) {
	case Insert:
		switch bv := b.(type) {
		case Insert:
			return insertAfterInsert(av, bv), nil
		case Delete:
			return insertAfterDelete(av, bv), nil
		}
	case Delete:
		switch bv := b.(type) {
		case Insert:
			return deleteAfterInsert(av, bv), nil
		case Delete:
			return deleteAfterDelete(av, bv)
		}
	}
	return nil, fmt.Errorf("ot: after: unsupported combination %T after %T", a, b)
}

func insertAfterInsert(a, b Insert) Op {
	if b.Idx > a.Idx {
		return a
	}
	// Ties break in favor of b: both land adjacent with b's text first.
	return Insert{Idx: a.Idx + len(b.Text), Text: a.Text}
}

func insertAfterDelete(a Insert, b Delete) Op {
	switch {
	case b.Idx > a.Idx:
		return a
	case b.Idx+b.NChars < a.Idx:
		return Insert{Idx: a.Idx - b.NChars, Text: a.Text}
	default:
		// Insert falls into, or at the boundary of, the deleted range:
		// clamp to the deletion's start.
		return Insert{Idx: b.Idx, Text: a.Text}
	}
}

func deleteAfterInsert(a Delete, b Insert) Op {
	bLen := len(b.Text)
	switch {
	case b.Idx > a.Idx+a.NChars:
		return a
	case b.Idx < a.Idx:
		return Delete{Idx: a.Idx + bLen, NChars: a.NChars}
	case b.Idx == a.Idx:
		// Insertion at the left boundary is not captured by the delete.
		return Delete{Idx: a.Idx + bLen, NChars: a.NChars}
	case b.Idx == a.Idx+a.NChars:
		// Insertion at the right boundary is not captured by the delete.
		return a
	default:
		// Insertion strictly inside the delete range: swallow it.
		return Delete{Idx: a.Idx, NChars: a.NChars + bLen}
	}
}

func deleteAfterDelete(a, b Delete) (Op, error) {
	ia, na := a.Idx, a.NChars
	ib, nb := b.Idx, b.NChars

	switch {
	case ib >= ia+na:
		return a, nil
	case ib+nb <= ia:
		return Delete{Idx: ia - nb, NChars: na}, nil
	case ib <= ia && ib+nb >= ia+na:
		// b already covered a's range entirely.
		return nil, nil
	case ib <= ia && ib+nb < ia+na:
		overlap := nb - (ia - ib)
		return Delete{Idx: ib, NChars: na - overlap}, nil
	case ib > ia && ib+nb > ia+na:
		return Delete{Idx: ia, NChars: ib - ia}, nil
	case ib > ia && ib+nb <= ia+na:
		return Delete{Idx: ia, NChars: na - nb}, nil
	default:
		return nil, fmt.Errorf("ot: delete-after-delete: unreachable case ia=%d na=%d ib=%d nb=%d", ia, na, ib, nb)
	}
}

// Conflicts reports whether a and b touch overlapping positions such that
// their relative order of application is observable to a user.
func Conflicts(a, b Op) bool {
	switch av := a.(type) {
	case Insert:
		switch bv := b.(type) {
		case Insert:
			return av.Idx == bv.Idx
		case Delete:
			return insertDeleteConflict(av, bv)
		}
	case Delete:
		switch bv := b.(type) {
		case Insert:
			return insertDeleteConflict(bv, av)
		case Delete:
			return deleteDeleteConflict(av, bv)
		}
	}
	return false
}

func insertDeleteConflict(ins Insert, del Delete) bool {
	return ins.Idx >= del.Idx && ins.Idx <= del.Idx+del.NChars
}

func deleteDeleteConflict(a, b Delete) bool {
	lo, hi := a, b
	if lo.Idx > hi.Idx {
		lo, hi = hi, lo
	}
	return lo.Idx+lo.NChars >= hi.Idx
}
