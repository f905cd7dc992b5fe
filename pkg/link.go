package storage

// Link is an optional index into one of the event's object lists. The zero
// value links to nothing.
type Link struct {
	index int32
	valid bool
}

func linkTo(i int) Link {
	return Link{index: int32(i), valid: true}
}

// linkFromStored decodes the on-disk form, where a negative index means
// no link.
func linkFromStored(v int32) Link {
	if v < 0 {
		return Link{}
	}
	return Link{index: v, valid: true}
}

func (l Link) Index() (int, bool) {
	return int(l.index), l.valid
}

func (l Link) Valid() bool {
	return l.valid
}

func (l Link) stored() int32 {
	if !l.valid {
		return -1
	}
	return l.index
}
