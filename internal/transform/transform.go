package transform

// mapAfterDeletion maps index i through a deletion of [ds, de).
// Indices inside the deleted range collapse to its left edge.
func mapAfterDeletion(i, ds, de uint64) uint64 {
	switch {
	case i <= ds:
		return i
	case i >= de:
		return i - (de - ds)
	default:
		return ds
	}
}

// mapAfterInsertion maps index i through an insertion of length il at ip.
// An insertion is placed strictly before indices at or beyond its position.
func mapAfterInsertion(i, ip, il uint64) uint64 {
	if i < ip {
		return i
	}
	return i + il
}

// Transform rebases opIn under the assumption that opPrev has already been
// applied to the document state opIn was authored against. It is pure,
// total, and never fails: every branch of the 4x4 (Insert/Delete/Replace/Noop)
// matrix in spec.md §4.1 is represented below.
//
// TP1 convergence (spec.md §8 P1) falls out of this dispatch: applying a
// then Transform(b, a), versus applying b then Transform(a, b), yield the
// same document for any concurrent a, b.
func Transform(opIn, opPrev Op) Op {
	if opIn.Kind == KindNoop {
		return opIn
	}
	if opPrev.Kind == KindNoop {
		return opIn
	}

	switch opIn.Kind {
	case KindInsert:
		return transformInsert(opIn, opPrev)
	case KindDelete:
		return transformDelete(opIn, opPrev)
	case KindReplace:
		return transformReplace(opIn, opPrev)
	default:
		return opIn
	}
}

func transformInsert(op, prev Op) Op {
	switch prev.Kind {
	case KindInsert:
		if prev.Index < op.Index || (prev.Index == op.Index && prev.ClientID < op.ClientID) {
			op.Index += prev.TextLen()
		}
		return op
	case KindDelete:
		op.Index = mapAfterDeletion(op.Index, prev.Start, prev.End)
		return op
	case KindReplace:
		afterDel := mapAfterDeletion(op.Index, prev.Start, prev.End)
		op.Index = mapAfterInsertion(afterDel, prev.Start, prev.TextLen())
		return op
	default:
		return op
	}
}

func transformDelete(op, prev Op) Op {
	switch prev.Kind {
	case KindInsert:
		op.Start, op.End = shiftRangeForInsert(op.Start, op.End, prev.Index, prev.TextLen())
		return op
	case KindDelete:
		newStart := mapAfterDeletion(op.Start, prev.Start, prev.End)
		newEnd := mapAfterDeletion(op.End, prev.Start, prev.End)
		if newStart == newEnd {
			return Noop(op.ClientID, op.ClientVersion)
		}
		op.Start, op.End = newStart, newEnd
		return op
	case KindReplace:
		startAfterDel := mapAfterDeletion(op.Start, prev.Start, prev.End)
		endAfterDel := mapAfterDeletion(op.End, prev.Start, prev.End)
		if startAfterDel == endAfterDel {
			return Noop(op.ClientID, op.ClientVersion)
		}
		op.Start, op.End = shiftRangeForInsert(startAfterDel, endAfterDel, prev.Start, prev.TextLen())
		return op
	default:
		return op
	}
}

func transformReplace(op, prev Op) Op {
	switch prev.Kind {
	case KindInsert:
		op.Start, op.End = shiftRangeForInsert(op.Start, op.End, prev.Index, prev.TextLen())
		return op
	case KindDelete:
		newStart := mapAfterDeletion(op.Start, prev.Start, prev.End)
		newEnd := mapAfterDeletion(op.End, prev.Start, prev.End)
		if newStart == newEnd {
			// The range this replacement targeted disappeared entirely, but
			// the text it was going to insert must not be lost (spec.md P4).
			return Insert(newStart, op.Text, op.ClientID, op.ClientVersion)
		}
		op.Start, op.End = newStart, newEnd
		return op
	case KindReplace:
		startAfterDel := mapAfterDeletion(op.Start, prev.Start, prev.End)
		endAfterDel := mapAfterDeletion(op.End, prev.Start, prev.End)
		startFinal := mapAfterInsertion(startAfterDel, prev.Start, prev.TextLen())
		endFinal := mapAfterInsertion(endAfterDel, prev.Start, prev.TextLen())
		if startFinal == endFinal {
			return Insert(startFinal, op.Text, op.ClientID, op.ClientVersion)
		}
		op.Start, op.End = startFinal, endFinal
		return op
	default:
		return op
	}
}

// shiftRangeForInsert adjusts a [start, end) range for a prior insertion of
// length insLen at insIndex: an insertion before the range shifts both
// edges; one landing inside the range expands it to subsume the intrusion;
// one after leaves the range untouched.
func shiftRangeForInsert(start, end, insIndex, insLen uint64) (uint64, uint64) {
	switch {
	case insIndex <= start:
		return start + insLen, end + insLen
	case insIndex < end:
		return start, end + insLen
	default:
		return start, end
	}
}
