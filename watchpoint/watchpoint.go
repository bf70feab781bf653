// Package watchpoint keeps the fixed pool of expressions the monitor re-evaluates after every
// executed instruction.
package watchpoint

import (
	"errors"
	"fmt"
	"sync"
)

const NRWatchpoints = 32

var (
	ErrPoolExhausted = errors.New("no free watchpoint")
	ErrNotFound      = errors.New("no such watchpoint")
)

type Watchpoint struct {
	No         int    `json:"no"`
	Expression string `json:"expression"`
	Value      uint64 `json:"value"`
	Hits       int    `json:"hits"`
}

// Change reports a watchpoint whose value moved. Err is set when the expression could no
// longer be evaluated, in which case New equals Old.
type Change struct {
	Watchpoint Watchpoint
	Old        uint64
	New        uint64
	Err        error
}

type Pool struct {
	mu    sync.Mutex
	slots [NRWatchpoints]Watchpoint
	used  [NRWatchpoints]bool
}

func NewPool() *Pool {
	p := &Pool{}
	for i := range p.slots {
		p.slots[i].No = i
	}
	return p
}

// Add takes the lowest free slot.
func (p *Pool) Add(expression string, value uint64) (Watchpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.slots {
		if p.used[i] {
			continue
		}
		p.used[i] = true
		p.slots[i] = Watchpoint{No: i, Expression: expression, Value: value}
		return p.slots[i], nil
	}
	return Watchpoint{}, fmt.Errorf("%w: all %d are in use", ErrPoolExhausted, NRWatchpoints)
}

func (p *Pool) Remove(no int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if no < 0 || no >= NRWatchpoints || !p.used[no] {
		return fmt.Errorf("%w: %d", ErrNotFound, no)
	}
	p.used[no] = false
	p.slots[no] = Watchpoint{No: no}
	return nil
}

func (p *Pool) List() []Watchpoint {
	p.mu.Lock()
	defer p.mu.Unlock()

	list := []Watchpoint{}
	for i := range p.slots {
		if p.used[i] {
			list = append(list, p.slots[i])
		}
	}
	return list
}

func (p *Pool) Len() int {
	return len(p.List())
}

// Check re-evaluates every active watchpoint. The pool is not locked while eval runs.
func (p *Pool) Check(eval func(string) (uint64, error)) []Change {
	changes := []Change{}
	for _, wp := range p.List() {
		value, err := eval(wp.Expression)
		if err != nil {
			changes = append(changes, Change{Watchpoint: wp, Old: wp.Value, New: wp.Value, Err: err})
			continue
		}
		if value == wp.Value {
			continue
		}

		p.mu.Lock()
		// the slot may have been removed or reused while eval ran
		if !p.used[wp.No] || p.slots[wp.No].Expression != wp.Expression {
			p.mu.Unlock()
			continue
		}
		p.slots[wp.No].Value = value
		p.slots[wp.No].Hits++
		updated := p.slots[wp.No]
		p.mu.Unlock()

		changes = append(changes, Change{Watchpoint: updated, Old: wp.Value, New: value})
	}
	return changes
}
