package optimize

type Status string

const (
	StatusOK               Status = "ok"
	StatusNoPurchaseNeeded Status = "no_purchase_needed"
	StatusInsufficientData Status = "insufficient_data"
	StatusWindowTooSmall   Status = "window_too_small"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusOK, StatusNoPurchaseNeeded, StatusInsufficientData, StatusWindowTooSmall:
		return true
	default:
		return false
	}
}
