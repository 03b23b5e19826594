package roughtime

import (
	"time"

	"github.com/cloudflare/roughtime"

	l "github.com/zenoproject/zeno/log"
)

var log = l.New(l.Ctx{"module": "roughtime"})

// RecalibrationInterval is how often the roughtime offset is refreshed from
// the server ecosystem.
const RecalibrationInterval = time.Hour

var offset time.Duration

// Init queries the roughtime ecosystem once and keeps recalibrating in the
// background. When the query fails the system clock is used unadjusted.
func Init() {
	recalibrate()
	go func() {
		t := time.NewTicker(RecalibrationInterval)
		defer t.Stop()
		for range t.C {
			recalibrate()
		}
	}()
}

func recalibrate() {
	t0 := time.Now()
	results := roughtime.Do(roughtime.Ecosystem, roughtime.DefaultQueryAttempts,
		roughtime.DefaultQueryTimeout, nil)
	// Reject responses whose radii are larger than 2 seconds and average the
	// rest against the local clock.
	var err error
	offset, err = roughtime.AvgDeltaWithRadiusThresh(results, t0, 2*time.Second)
	if err != nil {
		log.Warn("Failed to calculate roughtime offset, using system time", "error", err)
		return
	}
	log.Debug("Roughtime offset calibrated", "offset", offset)
}

// Now returns the current local time adjusted by the roughtime offset.
func Now() time.Time {
	if offset == 0 {
		return time.Now()
	}
	return time.Now().Add(offset)
}

// Since returns the duration since t, based on the adjusted clock.
func Since(t time.Time) time.Duration {
	return Now().Sub(t)
}

func Offset() time.Duration {
	return offset
}
