package www

import (
	"log/slog"
	"net/http"

	"github.com/icodeforyou/rceprices-go/mask"
)

// NewMaskHandler encodes the slot mask of a day without sending it. The
// threshold defaults to the configured sell threshold.
func NewMaskHandler(logger *slog.Logger, v *priceView) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		threshold, err := floatOrDefault(r.URL, "threshold", v.cnfg().Dispatch.SellThreshold)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		flip, err := boolOrDefault(r.URL, "flip", false)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		date, day, _, ok := v.day(logger, w, r)
		if !ok {
			return
		}

		regs, err := mask.ForDay(day, threshold, flip)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		writeJSON(logger, w, http.StatusOK, struct {
			Date      string   `json:"date"`
			Threshold float64  `json:"threshold"`
			Flip      bool     `json:"flip"`
			Registers []uint16 `json:"registers"`
			Hex       string   `json:"hex"`
			Bits      []bool   `json:"bits"`
		}{
			Date:      date,
			Threshold: threshold,
			Flip:      flip,
			Registers: regs.Slice(),
			Hex:       regs.String(),
			Bits:      regs.Bits(),
		})
	}
}
