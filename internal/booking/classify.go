package booking

import (
	"strings"

	"github.com/Shivanand-hulikatti/eventhub/internal/apperr"
	"github.com/Shivanand-hulikatti/eventhub/internal/notify"
)

// Result is the terminal outcome of one booking attempt.
type Result string

const (
	ResultSuccess         Result = "success"
	ResultBusy            Result = "busy"
	ResultUnauthenticated Result = "unauthenticated"
	ResultSoldOut         Result = "sold_out"
	ResultLimitReached    Result = "limit_reached"
	ResultBookingError    Result = "booking_error"
)

// Tone is how the outcome is presented to the user.
func (r Result) Tone() notify.Tone {
	switch r {
	case ResultSuccess:
		return notify.ToneSuccess
	case ResultUnauthenticated:
		return notify.ToneInfo
	case ResultSoldOut:
		return notify.ToneWarning
	case ResultLimitReached:
		return notify.ToneNotice
	default:
		return notify.ToneError
	}
}

func (r Result) kind() apperr.Kind {
	switch r {
	case ResultUnauthenticated:
		return apperr.KindAuthentication
	case ResultSoldOut:
		return apperr.KindSoldOut
	case ResultLimitReached:
		return apperr.KindLimitReached
	default:
		return apperr.KindBooking
	}
}

// Classify maps a backend booking failure message onto a Result. It is the
// only place the keyword rules live.
func Classify(message string) Result {
	m := strings.ToLower(message)
	switch {
	case strings.Contains(m, "sold out"), strings.Contains(m, "capacity"):
		return ResultSoldOut
	case strings.Contains(m, "limit reached"), strings.Contains(m, "maximum ticket"):
		return ResultLimitReached
	default:
		return ResultBookingError
	}
}
