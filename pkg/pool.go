package storage

// pool is an arena of reusable objects. Slots below live are in use by the
// current event, the rest are spares waiting to be reused. Objects are
// never freed before the storage is closed.
type pool[T any, P interface {
	*T
	reset()
}] struct {
	slots     []P
	live      int
	allocated int
}

// acquire returns a cleared object and its slot index, which is also its
// position in the event's flat list.
func (p *pool[T, P]) acquire() (P, int) {
	idx := p.live
	if idx < len(p.slots) {
		obj := p.slots[idx]
		obj.reset()
		p.live++
		return obj, idx
	}
	obj := P(new(T))
	p.slots = append(p.slots, obj)
	p.allocated++
	p.live++
	return obj, idx
}

// release hands every live object back to the pool.
func (p *pool[T, P]) release() {
	p.live = 0
}

func (p *pool[T, P]) inUse() []P {
	return p.slots[:p.live:p.live]
}

func (p *pool[T, P]) at(i int) P {
	return p.slots[i]
}

func (p *pool[T, P]) drop() {
	clear(p.slots)
	p.slots = nil
	p.live = 0
}

func (p *pool[T, P]) stat() PoolStat {
	return PoolStat{Live: p.live, Allocated: p.allocated}
}

type PoolStat struct {
	// Live objects in the current event
	Live int
	// Allocated objects since the storage was opened
	Allocated int
}

type PoolStats struct {
	Hits     PoolStat
	Clusters PoolStat
	Tracks   PoolStat
}
