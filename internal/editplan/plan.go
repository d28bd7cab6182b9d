package editplan

import "github.com/fenwick-labs/scrivener/internal/gdoc"

// Op is one edit against the document's index space. Exactly one field is
// set, mirroring the document store's request union.
type Op struct {
	Insert      *InsertOp
	DeleteRange *DeleteRangeOp
}

// InsertOp places Text at document index At.
type InsertOp struct {
	At   int64
	Text string
}

// DeleteRangeOp removes document indices [Start, End).
type DeleteRangeOp struct {
	Start int64
	End   int64
}

// PlanEdits produces the ordered edit batch for one call write. The notes
// insert is scheduled first, then the snapshot replace (bounds non-nil) or
// the initial snapshot insert at the start of addressable content. The store
// applies the batch atomically against the original index space; the notes
// anchor also sits after every snapshot index in the layouts this system
// writes, so the order survives a store that applies ops sequentially.
//
// The +1 on snapshot indices maps flattened-text offsets into the document
// index space, whose index 0 is a start sentinel not addressable for
// deletion.
func PlanEdits(notesAnchor int64, bounds *gdoc.Bounds, snapshotText, notesText string) []Op {
	ops := []Op{
		{Insert: &InsertOp{At: notesAnchor, Text: "\n" + notesText + "\n\n"}},
	}

	if bounds != nil {
		ops = append(ops,
			Op{DeleteRange: &DeleteRangeOp{Start: int64(bounds.Start) + 1, End: int64(bounds.End) + 1}},
			Op{Insert: &InsertOp{At: int64(bounds.Start) + 1, Text: snapshotText}},
		)
	} else {
		ops = append(ops, Op{Insert: &InsertOp{At: 1, Text: snapshotText + "\n\n"}})
	}

	return ops
}
