package mask

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/icodeforyou/rceprices-go/calc"
	"github.com/icodeforyou/rceprices-go/types"
)

const (
	SlotsPerDay   = 96
	RegisterBits  = 16
	RegisterCount = SlotsPerDay / RegisterBits
)

var ErrInvalidThreshold = errors.New("invalid mask threshold")

// Registers holds one bit per 15 minute slot of a day. Register k covers slots
// [16k, 16k+16) and the earliest slot is the least significant bit.
type Registers [RegisterCount]uint16

// BuildMask marks the slots whose price is below threshold, or at or above it
// when flip is set. Each price is repeated slotMinutes/15 times, the day is
// padded with zero prices up to 96 slots and anything beyond is dropped.
func BuildMask(prices []float64, threshold float64, flip bool, slotMinutes int) (Registers, error) {
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return Registers{}, fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
	}

	repeat := max(1, slotMinutes/15)
	expanded := make([]float64, 0, SlotsPerDay)
	for _, p := range prices {
		for range repeat {
			expanded = append(expanded, p)
		}
	}
	for len(expanded) < SlotsPerDay {
		expanded = append(expanded, 0)
	}
	expanded = expanded[:SlotsPerDay]

	var regs Registers
	for i, p := range expanded {
		set := p < threshold
		if flip {
			set = !set
		}
		if set {
			regs[i/RegisterBits] |= 1 << (i % RegisterBits)
		}
	}
	return regs, nil
}

// ForDay builds the mask for one day slice, taking the slot length from its records.
func ForDay(records []types.PriceRecord, threshold float64, flip bool) (Registers, error) {
	slotMinutes := 15
	if len(records) > 0 {
		slotMinutes = int(records[0].Granularity() / time.Minute)
	}
	return BuildMask(calc.PricesFrom(records), threshold, flip, slotMinutes)
}

// Bits decodes the registers back into one flag per slot.
func (r Registers) Bits() []bool {
	bits := make([]bool, SlotsPerDay)
	for i := range bits {
		bits[i] = r[i/RegisterBits]&(1<<(i%RegisterBits)) != 0
	}
	return bits
}

func (r Registers) Slice() []uint16 {
	return r[:]
}

func (r Registers) String() string {
	words := make([]string, len(r))
	for i, w := range r {
		words[i] = fmt.Sprintf("0x%04x", w)
	}
	return strings.Join(words, " ")
}
