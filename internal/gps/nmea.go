// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
)

const (
	knotsToMps = 0.514444

	// Typical user equivalent range error of a consumer receiver; HDOP is
	// scaled by it to estimate horizontal accuracy.
	uereMeters = 5.0
)

// nmeaState accumulates sentences from one receiver. GGA carries altitude
// and HDOP, RMC carries position, speed and date; a sample is emitted on
// each valid RMC using the latest GGA values.
type nmeaState struct {
	altitude *float64
	accuracy *float64
}

// applyLine parses one raw line. Noise, partial sentences and sentence types
// we do not use are skipped silently.
func (st *nmeaState) applyLine(line string) (Sample, bool) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, "$") {
		return Sample{}, false
	}
	sentence, err := nmea.Parse(line)
	if err != nil {
		return Sample{}, false
	}
	return st.apply(sentence)
}

func (st *nmeaState) apply(sentence nmea.Sentence) (Sample, bool) {
	switch sentence.DataType() {
	case nmea.TypeGGA:
		m := sentence.(nmea.GGA)
		if m.FixQuality == nmea.Invalid {
			st.altitude = nil
			st.accuracy = nil
			return Sample{}, false
		}
		st.altitude = Float(m.Altitude)
		if m.HDOP > 0 {
			st.accuracy = Float(m.HDOP * uereMeters)
		}
		return Sample{}, false

	case nmea.TypeRMC:
		m := sentence.(nmea.RMC)
		if m.Validity != nmea.ValidRMC {
			return Sample{}, false
		}
		s := Sample{
			Latitude:  Float(m.Latitude),
			Longitude: Float(m.Longitude),
			Speed:     Float(m.Speed * knotsToMps),
		}
		if st.altitude != nil {
			s.Altitude = Float(*st.altitude)
		}
		if st.accuracy != nil {
			s.Accuracy = Float(*st.accuracy)
		}
		if ts, ok := rmcTime(m); ok {
			s.TimestampMs = Millis(ts)
		}
		return s, true

	default:
		// GSA, GSV, VTG and friends are not needed for speed/altitude.
		return Sample{}, false
	}
}

func rmcTime(m nmea.RMC) (time.Time, bool) {
	if !m.Date.Valid || !m.Time.Valid {
		return time.Time{}, false
	}
	return time.Date(2000+m.Date.YY, time.Month(m.Date.MM), m.Date.DD,
		m.Time.Hour, m.Time.Minute, m.Time.Second, m.Time.Millisecond*int(time.Millisecond), time.UTC), true
}
