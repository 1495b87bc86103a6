package utils

import (
	"strings"

	"github.com/gosimple/slug"
)

type SeatDescriptor struct {
	Section string `json:"section"`
	Row     uint   `json:"row"`
	Seat    uint   `json:"seat"`
}

// DeriveSeat maps a tier and its monotonic ordinal to a seat descriptor.
// Pure and deterministic: auditors must be able to recompute any issued
// seat from (tier name, seats per row, ordinal) alone. Ordinals are
// 1-based; seatsPerRow of 0 falls back to 10.
func DeriveSeat(tierName string, seatsPerRow uint, ordinal uint) SeatDescriptor {
	if seatsPerRow == 0 {
		seatsPerRow = 10
	}
	section := strings.ToUpper(slug.Make(tierName))
	idx := ordinal - 1
	return SeatDescriptor{
		Section: section,
		Row:     idx/seatsPerRow + 1,
		Seat:    idx%seatsPerRow + 1,
	}
}
