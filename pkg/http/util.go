package http

import (
	"time"

	xutil "RiskPulse/pkg/util"
)

// ParseWindow parses optional from/to request values into a range. Missing
// to is now, missing from is to minus window. Failures are 400s.
func ParseWindow(from, to string, window time.Duration, now time.Time) (time.Time, time.Time, *AppError) {
	f, t, err := xutil.ParseRange(from, to, window, now)
	if err != nil {
		return time.Time{}, time.Time{}, BadRequestErrorf("from", "%v", err)
	}
	return f, t, nil
}
