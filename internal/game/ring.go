package game

// Direction is the turn rotation direction.
type Direction int

const (
	Clockwise Direction = iota
	CounterClockwise
)

// String returns the string representation of a direction
func (d Direction) String() string {
	if d == CounterClockwise {
		return "CCW"
	}
	return "CW"
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	if string(text) == "CCW" {
		*d = CounterClockwise
	} else {
		*d = Clockwise
	}
	return nil
}

// TurnCursor is a closed ring of seat ids with a direction flag. After
// the last seat comes the first again (or the previous in CCW).
type TurnCursor struct {
	order []string
	cur   int
	dir   Direction
}

// NewTurnCursor creates a cursor over the given seating order, starting
// on the first seat, rotating clockwise.
func NewTurnCursor(seatIDs []string) *TurnCursor {
	order := make([]string, len(seatIDs))
	copy(order, seatIDs)
	return &TurnCursor{order: order}
}

// Current returns the seat id that owns the turn.
func (t *TurnCursor) Current() string {
	if len(t.order) == 0 {
		return ""
	}
	return t.order[t.cur]
}

// PeekNext returns the seat that would own the turn after one advance.
func (t *TurnCursor) PeekNext() string {
	if len(t.order) == 0 {
		return ""
	}
	return t.order[t.step(t.cur)]
}

func (t *TurnCursor) step(from int) int {
	n := len(t.order)
	if t.dir == CounterClockwise {
		return (from - 1 + n) % n
	}
	return (from + 1) % n
}

// Advance moves one seat in the current direction.
func (t *TurnCursor) Advance() {
	if len(t.order) == 0 {
		return
	}
	t.cur = t.step(t.cur)
}

// Skip moves two seats in the current direction.
func (t *TurnCursor) Skip() {
	t.Advance()
	t.Advance()
}

// Reverse flips the direction without moving the cursor.
func (t *TurnCursor) Reverse() {
	if t.dir == Clockwise {
		t.dir = CounterClockwise
	} else {
		t.dir = Clockwise
	}
}

// Direction returns the current rotation direction.
func (t *TurnCursor) Direction() Direction {
	return t.dir
}

// Insert places a seat into the ring. With afterCurrent it lands
// immediately after the current seat in ring order; otherwise it is
// appended to the end of the seating order.
func (t *TurnCursor) Insert(seatID string, afterCurrent bool) {
	if !afterCurrent || len(t.order) == 0 {
		t.order = append(t.order, seatID)
		return
	}
	at := t.cur + 1
	t.order = append(t.order, "")
	copy(t.order[at+1:], t.order[at:])
	t.order[at] = seatID
}

// Remove drops a seat from the ring. Removing the current seat advances
// the cursor first so the turn lands on the next live seat.
func (t *TurnCursor) Remove(seatID string) {
	idx := -1
	for i, id := range t.order {
		if id == seatID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return
	}
	if idx == t.cur {
		t.Advance()
	}
	if t.cur > idx {
		t.cur--
	}
	t.order = append(t.order[:idx], t.order[idx+1:]...)
	if len(t.order) > 0 {
		t.cur %= len(t.order)
	} else {
		t.cur = 0
	}
}

// Len returns the number of seats in the ring.
func (t *TurnCursor) Len() int {
	return len(t.order)
}

// Order returns a copy of the seating order.
func (t *TurnCursor) Order() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Contains reports whether a seat is in the ring.
func (t *TurnCursor) Contains(seatID string) bool {
	for _, id := range t.order {
		if id == seatID {
			return true
		}
	}
	return false
}
