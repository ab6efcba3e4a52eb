package game

// OneCallTracker tracks the "called ONE" state per seat. A window opens
// when a seat drops to a single card without calling; it stays open
// until the start of that seat's next turn. Inside the window any other
// seat may catch the omission for a two-card penalty; if nobody does,
// the penalty is applied automatically when the window closes.
type OneCallTracker struct {
	open map[string]bool // seatID -> uncalled window open
}

// NewOneCallTracker creates an empty tracker.
func NewOneCallTracker() *OneCallTracker {
	return &OneCallTracker{open: make(map[string]bool)}
}

// OpenWindow marks a seat as holding one card without having called.
func (o *OneCallTracker) OpenWindow(seatID string) {
	o.open[seatID] = true
}

// CloseWindow clears a seat's window, called or caught.
func (o *OneCallTracker) CloseWindow(seatID string) {
	delete(o.open, seatID)
}

// WindowOpen reports whether the seat can still be caught.
func (o *OneCallTracker) WindowOpen(seatID string) bool {
	return o.open[seatID]
}

// Call records a successful ONE call. Returns false when the seat is
// not eligible (hand size != 1 or already called).
func (o *OneCallTracker) Call(seat *Seat) bool {
	if seat.HandSize() != 1 || seat.CalledOne {
		return false
	}
	seat.CalledOne = true
	o.CloseWindow(seat.ID)
	return true
}

// Catch validates a catch attempt against a target seat. Returns false
// when the target called in time, holds more than one card, or the
// window already closed.
func (o *OneCallTracker) Catch(target *Seat) bool {
	if target.HandSize() != 1 || target.CalledOne {
		return false
	}
	if !o.WindowOpen(target.ID) {
		return false
	}
	o.CloseWindow(target.ID)
	return true
}

// Reset clears a seat's call flag and window, used whenever its hand
// size moves away from one.
func (o *OneCallTracker) Reset(seat *Seat) {
	seat.CalledOne = false
	o.CloseWindow(seat.ID)
}
