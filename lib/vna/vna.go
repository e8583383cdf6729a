// Package vna drives a Rohde & Schwarz ZNL20 vector network analyzer over a
// SCPI session (TCPIP/HiSLIP or raw socket).
package vna

import (
	"fmt"
	"strings"

	mcd "github.com/CesarHernandezFogued/measurement-control-drivers"
	"github.com/gotmc/query"
)

// DefaultMaxMarkers bounds the marker probe loops.
const DefaultMaxMarkers = 10

// Analyzer is a vector network analyzer attached to a session.
type Analyzer struct {
	sess *mcd.Session
}

// MarkerReading pairs a marker index with its read-back coordinates.
type MarkerReading struct {
	Marker int
	FreqHz float64
	Value  float64
}

// New attaches an Analyzer to an open session.
func New(sess *mcd.Session) *Analyzer {
	return &Analyzer{sess: sess}
}

// Session exposes the underlying session.
func (v *Analyzer) Session() *mcd.Session { return v.sess }

// Reset restores factory defaults and waits for completion.
func (v *Analyzer) Reset() error { return v.sess.Reset() }

// DrainErrors empties the device error queue.
func (v *Analyzer) DrainErrors() ([]string, error) { return v.sess.DrainErrors() }

// TraceNames lists the trace/parameter catalog of the given window
// (CALC:PAR:CAT?), e.g. "'Trc1','S21'".
func (v *Analyzer) TraceNames(window int) (string, error) {
	return v.sess.Queryf("CALC%d:PAR:CAT?", window)
}

// SelectTrace defines an S-parameter measurement under the given logical
// trace name and selects it as the active trace of the window. The sparam is
// one of S11, S21, S12, S22. The instrument's own error queue decides whether
// the combination is valid; a nonzero SYST:ERR? readback is surfaced as an
// error.
func (v *Analyzer) SelectTrace(name, sparam string, window int) error {
	if err := v.sess.Writef("CALC%d:PAR:MEAS '%s','%s'", window, name, sparam); err != nil {
		return err
	}
	if err := v.sess.Writef("CALC%d:PAR:SEL '%s'", window, name); err != nil {
		return err
	}
	reply, err := v.sess.Query("SYST:ERR?")
	if err != nil {
		return err
	}
	if !strings.HasPrefix(reply, "0") {
		return fmt.Errorf("selecting trace %q (%s): %s", name, sparam, reply)
	}
	return nil
}

// SetSpan configures the sweep as start/stop frequencies plus point count.
// The stop frequency must exceed the start frequency; violations are
// rejected before any command is sent.
func (v *Analyzer) SetSpan(startHz, stopHz float64, points int) error {
	if stopHz <= startHz {
		return &mcd.RangeError{
			Param:   "stop frequency",
			Value:   stopHz,
			Message: fmt.Sprintf("must be greater than start frequency %v", startHz),
		}
	}
	if err := v.sess.Writef("SENS:FREQ:STAR %G", startHz); err != nil {
		return err
	}
	if err := v.sess.Writef("SENS:FREQ:STOP %G", stopHz); err != nil {
		return err
	}
	return v.SetSweepPoints(points)
}

// SetCenterFrequency sets the sweep center frequency in Hz.
func (v *Analyzer) SetCenterFrequency(hz float64) error {
	return v.sess.Writef("SENS:FREQ:CENT %G", hz)
}

// SetSpanWidth sets the sweep span width in Hz.
func (v *Analyzer) SetSpanWidth(hz float64) error {
	if hz <= 0 {
		return &mcd.RangeError{Param: "span", Value: hz, Message: "must be greater than zero"}
	}
	return v.sess.Writef("SENS:FREQ:SPAN %G", hz)
}

// SetSweepPoints sets the number of sweep points.
func (v *Analyzer) SetSweepPoints(points int) error {
	return v.sess.Writef("SENS:SWE:POIN %d", points)
}

// StartStop reads back the current sweep limits.
func (v *Analyzer) StartStop() (startHz, stopHz float64, err error) {
	startHz, err = query.Float64(v.sess, "SENS:FREQ:STAR?")
	if err != nil {
		return 0, 0, err
	}
	stopHz, err = query.Float64(v.sess, "SENS:FREQ:STOP?")
	if err != nil {
		return 0, 0, err
	}
	return startHz, stopHz, nil
}

// SweepPoints reads back the number of sweep points.
func (v *Analyzer) SweepPoints() (int, error) {
	f, err := query.Float64(v.sess, "SENS:SWE:POIN?")
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// SetMarker switches marker idx on or off.
func (v *Analyzer) SetMarker(idx int, on bool) error {
	state := "OFF"
	if on {
		state = "ON"
	}
	return v.sess.Writef("CALC:MARK%d:STAT %s", idx, state)
}

// SetMarkerX positions marker idx. The frequency is validated against the
// sweep limits read back from the instrument; out-of-span values are rejected
// without touching the marker.
func (v *Analyzer) SetMarkerX(idx int, freqHz float64) error {
	start, stop, err := v.StartStop()
	if err != nil {
		return err
	}
	if freqHz < start || freqHz > stop {
		return &mcd.RangeError{
			Param:   "marker frequency",
			Value:   freqHz,
			Message: fmt.Sprintf("outside sweep [%v, %v]", start, stop),
		}
	}
	return v.sess.Writef("CALC:MARK%d:X %G", idx, freqHz)
}

// MarkerXY reads the position and value of marker idx.
func (v *Analyzer) MarkerXY(idx int) (x, y float64, err error) {
	x, err = query.Float64f(v.sess, "CALC:MARK%d:X?", idx)
	if err != nil {
		return 0, 0, err
	}
	y, err = query.Float64f(v.sess, "CALC:MARK%d:Y?", idx)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

// ActiveMarkers probes markers 1..max and returns the indexes reporting an
// on state, stopping at the first one the instrument rejects.
func (v *Analyzer) ActiveMarkers(max int) []int {
	var actives []int
	for i := 1; i <= max; i++ {
		st, err := query.Float64f(v.sess, "CALC:MARK%d:STAT?", i)
		if err != nil {
			break
		}
		if int(st) == 1 {
			actives = append(actives, i)
		}
	}
	return actives
}

// AllMarkerXY reads the coordinates of every active marker.
func (v *Analyzer) AllMarkerXY(max int) ([]MarkerReading, error) {
	var readings []MarkerReading
	for _, idx := range v.ActiveMarkers(max) {
		x, y, err := v.MarkerXY(idx)
		if err != nil {
			return readings, err
		}
		readings = append(readings, MarkerReading{Marker: idx, FreqHz: x, Value: y})
	}
	return readings, nil
}

// ClearMarkers switches off markers 1..max, stopping at the first one the
// instrument rejects.
func (v *Analyzer) ClearMarkers(max int) {
	for i := 1; i <= max; i++ {
		if err := v.SetMarker(i, false); err != nil {
			break
		}
	}
}

// FetchTrace reads the formatted data of the active trace in the given
// window. Malformed tokens are skipped; the instrument is forced into ASCII
// format and queried once more if nothing parses.
func (v *Analyzer) FetchTrace(window int) ([]float64, error) {
	raw, err := v.sess.Queryf("CALC%d:DATA? FDAT", window)
	if err != nil {
		return nil, err
	}
	vals := mcd.ParseTrace(raw)
	if len(vals) > 0 {
		return vals, nil
	}

	if err := v.sess.Write("FORM ASC"); err != nil {
		return nil, err
	}
	raw, err = v.sess.Queryf("CALC%d:DATA? FDAT", window)
	if err != nil {
		return nil, err
	}
	vals = mcd.ParseTrace(raw)
	if len(vals) == 0 {
		return nil, fmt.Errorf("window %d: no numeric data in trace reply %q", window, raw)
	}
	return vals, nil
}

// FrequencyAxis reconstructs the frequency axis matching FetchTrace from the
// sweep limits and point count read back from the instrument.
func (v *Analyzer) FrequencyAxis() ([]float64, error) {
	start, stop, err := v.StartStop()
	if err != nil {
		return nil, err
	}
	points, err := v.SweepPoints()
	if err != nil {
		return nil, err
	}
	return mcd.FrequencyAxis(start, stop, points), nil
}
