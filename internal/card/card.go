package card

import "fmt"

// Color represents a card color.
type Color int

const (
	Red Color = iota
	Yellow
	Green
	Blue
	Wild
)

// String returns the string representation of a color
func (c Color) String() string {
	switch c {
	case Red:
		return "RED"
	case Yellow:
		return "YELLOW"
	case Green:
		return "GREEN"
	case Blue:
		return "BLUE"
	case Wild:
		return "WILD"
	default:
		return "?"
	}
}

// MarshalText implements encoding.TextMarshaler so colors serialize as
// their names on the wire.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseColor converts a color name back to a Color.
func ParseColor(s string) (Color, error) {
	switch s {
	case "RED":
		return Red, nil
	case "YELLOW":
		return Yellow, nil
	case "GREEN":
		return Green, nil
	case "BLUE":
		return Blue, nil
	case "WILD":
		return Wild, nil
	default:
		return 0, fmt.Errorf("unknown color %q", s)
	}
}

// Colors lists the four playable colors (excludes Wild).
var Colors = [4]Color{Red, Yellow, Green, Blue}

// Kind represents what a card does when played.
type Kind int

const (
	Number Kind = iota
	Skip
	Reverse
	DrawTwo
	WildCard
	WildDrawFour
)

// String returns the string representation of a kind
func (k Kind) String() string {
	switch k {
	case Number:
		return "NUMBER"
	case Skip:
		return "SKIP"
	case Reverse:
		return "REVERSE"
	case DrawTwo:
		return "DRAW_TWO"
	case WildCard:
		return "WILD"
	case WildDrawFour:
		return "WILD_DRAW_FOUR"
	default:
		return "?"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "NUMBER":
		*k = Number
	case "SKIP":
		*k = Skip
	case "REVERSE":
		*k = Reverse
	case "DRAW_TWO":
		*k = DrawTwo
	case "WILD":
		*k = WildCard
	case "WILD_DRAW_FOUR":
		*k = WildDrawFour
	default:
		return fmt.Errorf("unknown kind %q", string(text))
	}
	return nil
}

// IsWild returns true for the two wild kinds.
func (k Kind) IsWild() bool {
	return k == WildCard || k == WildDrawFour
}

// IsDrawPenalty returns true for kinds that create a pending draw.
func (k Kind) IsDrawPenalty() bool {
	return k == DrawTwo || k == WildDrawFour
}

// Card is a value object describing a single card. ID is stable for the
// lifetime of a session so clients can reference cards without index
// arithmetic. ChosenColor is set only while a wild sits on the discard
// pile; a wild in a hand carries nil.
type Card struct {
	ID          string `json:"id"`
	Kind        Kind   `json:"kind"`
	Color       Color  `json:"color"`
	Value       int    `json:"value"`
	ChosenColor *Color `json:"chosenColor,omitempty"`
}

// String returns a short human-readable form, e.g. "RED 7" or
// "WILD_DRAW_FOUR(GREEN)".
func (c Card) String() string {
	switch {
	case c.Kind == Number:
		return fmt.Sprintf("%s %d", c.Color, c.Value)
	case c.Kind.IsWild() && c.ChosenColor != nil:
		return fmt.Sprintf("%s(%s)", c.Kind, *c.ChosenColor)
	case c.Kind.IsWild():
		return c.Kind.String()
	default:
		return fmt.Sprintf("%s %s", c.Color, c.Kind)
	}
}

// Points returns the end-of-game point value of the card.
func (c Card) Points() int {
	switch c.Kind {
	case Number:
		return c.Value
	case Skip, Reverse, DrawTwo:
		return 20
	default:
		return 50
	}
}

// EffectiveColor returns the color the card enforces when it is the top
// of the discard pile: the chosen color for a wild in play, otherwise
// the printed color.
func (c Card) EffectiveColor() Color {
	if c.Kind.IsWild() && c.ChosenColor != nil {
		return *c.ChosenColor
	}
	return c.Color
}
