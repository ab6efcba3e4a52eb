package game

import "github.com/playone/oneserver/internal/card"

// PenaltyStack accumulates pending +2/+4 draws while a chain is being
// stacked. When stacking is disabled the session applies penalties
// immediately and the stack never holds a positive count.
type PenaltyStack struct {
	count int
	kind  card.Kind // last penalty kind played; meaningful only when count > 0
}

// Active reports whether a penalty is waiting to be paid or stacked.
func (p *PenaltyStack) Active() bool {
	return p.count > 0
}

// Count returns the accumulated draw count.
func (p *PenaltyStack) Count() int {
	return p.count
}

// Kind returns the kind of the last stacked penalty card.
func (p *PenaltyStack) Kind() card.Kind {
	return p.kind
}

// Add extends the chain with another penalty card.
func (p *PenaltyStack) Add(kind card.Kind, amount int) {
	p.count += amount
	p.kind = kind
}

// Clear resets the stack after the penalty is paid and returns the
// count that was owed.
func (p *PenaltyStack) Clear() int {
	n := p.count
	p.count = 0
	return n
}

// CanStack reports whether a card of the given kind may be played onto
// the active chain.
func (p *PenaltyStack) CanStack(kind card.Kind) bool {
	return kind.IsDrawPenalty()
}
