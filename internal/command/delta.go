package command

// Delta is the net change the output stage must apply: erase the effects of
// the last ToUndo pushed output commands, then apply ToPush in order.
type Delta[O any] struct {
	ToUndo int
	ToPush []O
}

// IsEmpty reports whether the delta changes nothing.
func (d Delta[O]) IsEmpty() bool {
	return d.ToUndo == 0 && len(d.ToPush) == 0
}

// Assimilate returns the delta equivalent to applying d and then next.
// Undo counts add and push sequences concatenate, except that undos in next
// first cancel pushes of d. The operation is associative.
func (d Delta[O]) Assimilate(next Delta[O]) Delta[O] {
	cancel := next.ToUndo
	if cancel > len(d.ToPush) {
		cancel = len(d.ToPush)
	}

	kept := d.ToPush[:len(d.ToPush)-cancel]
	push := make([]O, 0, len(kept)+len(next.ToPush))
	push = append(push, kept...)
	push = append(push, next.ToPush...)

	return Delta[O]{
		ToUndo: d.ToUndo + next.ToUndo - cancel,
		ToPush: push,
	}
}
