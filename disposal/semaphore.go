package disposal

import "context"

// slotPool is a counting semaphore over a buffered channel. A send claims a
// slot, a receive frees it.
type slotPool struct {
	slots chan struct{}
}

func newSlotPool(capacity int) *slotPool {
	return &slotPool{slots: make(chan struct{}, capacity)}
}

// acquire claims one slot, waiting until one frees up or ctx is done.
func (p *slotPool) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case p.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// release frees one slot. Callers must pair every successful acquire with
// exactly one release.
func (p *slotPool) release() {
	<-p.slots
}

func (p *slotPool) available() int {
	return cap(p.slots) - len(p.slots)
}

func (p *slotPool) capacity() int {
	return cap(p.slots)
}
