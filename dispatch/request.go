package dispatch

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/icodeforyou/rceprices-go/mask"
	"github.com/icodeforyou/rceprices-go/types"
	"github.com/icodeforyou/rceprices-go/types/maybe"
)

var ErrNoPrices = errors.New("no prices to build masks from")

type Kind string

const (
	KindSell Kind = "sell"
	KindBuy  Kind = "buy"
)

// Buy switch values, the buy mask is only sent when it is not BuyDisabled.
const (
	BuyDisabled      = 0
	BuyChargeOnly    = 1
	BuyChargeAndSell = 2
	sellMode         = 0
)

type Settings struct {
	Device                    string
	SellThreshold             float64
	BuyThreshold              float64
	BuySwitch                 int
	FlipSell                  bool
	FlipBuy                   bool
	BuyThresholdFromOptimizer bool
}

// Request is the message published for one mask.
type Request struct {
	TransId   string         `json:"transId"`
	Device    string         `json:"device"`
	Kind      Kind           `json:"kind"`
	Mode      int            `json:"mode"`
	Date      string         `json:"date"`
	Threshold float64        `json:"threshold"`
	Flip      bool           `json:"flip"`
	Registers mask.Registers `json:"registers"`
}

// BuildRequests encodes the sell mask and, unless buying is switched off, the
// buy mask for one day. optimizerThreshold replaces the configured buy
// threshold when the settings ask for it and the optimiser found one.
func BuildRequests(day []types.PriceRecord, s Settings, optimizerThreshold maybe.Maybe[float64]) ([]Request, error) {
	if len(day) == 0 {
		return nil, ErrNoPrices
	}
	date := day[0].BusinessDate

	sell, err := newRequest(day, s.Device, KindSell, sellMode, date, s.SellThreshold, s.FlipSell)
	if err != nil {
		return nil, err
	}
	requests := []Request{sell}

	if s.BuySwitch == BuyDisabled {
		return requests, nil
	}

	threshold := s.BuyThreshold
	if s.BuyThresholdFromOptimizer && optimizerThreshold.IsValid() {
		threshold = optimizerThreshold.Value()
	}
	buy, err := newRequest(day, s.Device, KindBuy, s.BuySwitch, date, threshold, s.FlipBuy)
	if err != nil {
		return nil, err
	}
	return append(requests, buy), nil
}

func newRequest(day []types.PriceRecord, device string, kind Kind, mode int, date string, threshold float64, flip bool) (Request, error) {
	regs, err := mask.ForDay(day, threshold, flip)
	if err != nil {
		return Request{}, fmt.Errorf("building %s mask: %w", kind, err)
	}
	return Request{
		TransId:   "rceprices-" + uuid.NewString(),
		Device:    device,
		Kind:      kind,
		Mode:      mode,
		Date:      date,
		Threshold: threshold,
		Flip:      flip,
		Registers: regs,
	}, nil
}
