package game

import "sort"

// Points earned by final position: winner, runner-up, everyone else.
var positionPoints = [...]int{50, 10, 0, 0}

// Ranking is one row of the end-of-game standings.
type Ranking struct {
	SeatID         string `json:"seatId"`
	Position       int    `json:"position"`
	RemainingCards int    `json:"remainingCards"`
	HandPoints     int    `json:"handPoints"`
	PointsEarned   int    `json:"pointsEarned"`
}

// ComputeRankings orders seats by ascending hand size, then ascending
// hand points, and assigns position points. Ordering among tied seats
// follows seating order.
func ComputeRankings(seats []*Seat) []Ranking {
	ordered := make([]*Seat, len(seats))
	copy(ordered, seats)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.HandSize() != b.HandSize() {
			return a.HandSize() < b.HandSize()
		}
		return a.HandPoints() < b.HandPoints()
	})

	rankings := make([]Ranking, len(ordered))
	for i, s := range ordered {
		earned := 0
		if i < len(positionPoints) {
			earned = positionPoints[i]
		}
		rankings[i] = Ranking{
			SeatID:         s.ID,
			Position:       i + 1,
			RemainingCards: s.HandSize(),
			HandPoints:     s.HandPoints(),
			PointsEarned:   earned,
		}
	}
	return rankings
}
