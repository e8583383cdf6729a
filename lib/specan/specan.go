// Package specan drives generic SCPI spectrum analyzers (tested dialects:
// Rohde & Schwarz FSV/FSW/ZNL-SA and Keysight X-Series). Where vendors spell
// a command differently, the driver tries the known variants in order.
package specan

import (
	"fmt"
	"strconv"
	"strings"

	mcd "github.com/CesarHernandezFogued/measurement-control-drivers"
)

// DefaultMaxMarkers bounds the marker probe loops; SCPI analyzers commonly
// expose markers 1..10.
const DefaultMaxMarkers = 10

// Analyzer is a spectrum analyzer attached to a session.
type Analyzer struct {
	sess *mcd.Session
}

// New attaches an Analyzer to an open session.
func New(sess *mcd.Session) *Analyzer {
	return &Analyzer{sess: sess}
}

// Session exposes the underlying session for commands the driver does not
// wrap.
func (a *Analyzer) Session() *mcd.Session { return a.sess }

// Reset restores factory defaults and waits for completion.
func (a *Analyzer) Reset() error { return a.sess.Reset() }

// DrainErrors empties the device error queue.
func (a *Analyzer) DrainErrors() ([]string, error) { return a.sess.DrainErrors() }

// SetSpan configures a start/stop sweep. The stop frequency must exceed the
// start frequency; violations are rejected before any command is sent.
func (a *Analyzer) SetSpan(startHz, stopHz float64, points int) error {
	if stopHz <= startHz {
		return &mcd.RangeError{
			Param:   "stop frequency",
			Value:   stopHz,
			Message: fmt.Sprintf("must be greater than start frequency %v", startHz),
		}
	}
	if err := a.sess.WriteAny(
		fmt.Sprintf("FREQ:STAR %G", startHz),
		fmt.Sprintf("SENS:FREQ:STAR %G", startHz),
	); err != nil {
		return err
	}
	if err := a.sess.WriteAny(
		fmt.Sprintf("FREQ:STOP %G", stopHz),
		fmt.Sprintf("SENS:FREQ:STOP %G", stopHz),
	); err != nil {
		return err
	}
	return a.SetPoints(points)
}

// SetCenterSpan configures a center/span sweep. The span must be positive.
func (a *Analyzer) SetCenterSpan(centerHz, spanHz float64, points int) error {
	if spanHz <= 0 {
		return &mcd.RangeError{Param: "span", Value: spanHz, Message: "must be greater than zero"}
	}
	if err := a.sess.WriteAny(
		fmt.Sprintf("FREQ:CENT %G", centerHz),
		fmt.Sprintf("SENS:FREQ:CENT %G", centerHz),
	); err != nil {
		return err
	}
	if err := a.sess.WriteAny(
		fmt.Sprintf("FREQ:SPAN %G", spanHz),
		fmt.Sprintf("SENS:FREQ:SPAN %G", spanHz),
	); err != nil {
		return err
	}
	return a.SetPoints(points)
}

// StartStop reads back the current sweep limits.
func (a *Analyzer) StartStop() (startHz, stopHz float64, err error) {
	reply, err := a.sess.QueryAny("FREQ:STAR?", "SENS:FREQ:STAR?")
	if err != nil {
		return 0, 0, err
	}
	if startHz, err = parseFloat(reply); err != nil {
		return 0, 0, err
	}
	reply, err = a.sess.QueryAny("FREQ:STOP?", "SENS:FREQ:STOP?")
	if err != nil {
		return 0, 0, err
	}
	if stopHz, err = parseFloat(reply); err != nil {
		return 0, 0, err
	}
	return startHz, stopHz, nil
}

// SetPoints sets the sweep point count.
func (a *Analyzer) SetPoints(points int) error {
	return a.sess.WriteAny(
		fmt.Sprintf("SWE:POIN %d", points),
		fmt.Sprintf("SENS:SWE:POIN %d", points),
	)
}

// Points reads back the sweep point count.
func (a *Analyzer) Points() (int, error) {
	reply, err := a.sess.QueryAny("SWE:POIN?", "SENS:SWE:POIN?")
	if err != nil {
		return 0, err
	}
	f, err := parseFloat(reply)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// SetSweepTime fixes the sweep time in seconds, disabling automatic coupling.
func (a *Analyzer) SetSweepTime(seconds float64) error {
	if err := a.sess.WriteAny("SWE:TIME:AUTO OFF", "SENS:SWE:TIME:AUTO OFF"); err != nil {
		return err
	}
	return a.sess.WriteAny(
		fmt.Sprintf("SWE:TIME %G", seconds),
		fmt.Sprintf("SENS:SWE:TIME %G", seconds),
	)
}

// SetSweepTimeAuto re-enables automatic sweep time coupling.
func (a *Analyzer) SetSweepTimeAuto() error {
	return a.sess.WriteAny("SWE:TIME:AUTO ON", "SENS:SWE:TIME:AUTO ON")
}

// SetRBW sets the resolution bandwidth in Hz.
func (a *Analyzer) SetRBW(hz float64) error {
	return a.sess.WriteAny(
		fmt.Sprintf("BAND %G", hz),
		fmt.Sprintf("SENS:BAND %G", hz),
	)
}

// SetRBWAuto couples or decouples the resolution bandwidth.
func (a *Analyzer) SetRBWAuto(on bool) error {
	return a.sess.WriteAny(
		"BAND:AUTO "+onOff(on),
		"SENS:BAND:AUTO "+onOff(on),
	)
}

// SetVBW sets the video bandwidth in Hz.
func (a *Analyzer) SetVBW(hz float64) error {
	return a.sess.WriteAny(
		fmt.Sprintf("BAND:VID %G", hz),
		fmt.Sprintf("SENS:BAND:VID %G", hz),
	)
}

// SetVBWAuto couples or decouples the video bandwidth.
func (a *Analyzer) SetVBWAuto(on bool) error {
	return a.sess.WriteAny(
		"BAND:VID:AUTO "+onOff(on),
		"SENS:BAND:VID:AUTO "+onOff(on),
	)
}

// SetDetector selects the trace detector: POS, NEG, SAMP, AVER, RMS, QPE.
func (a *Analyzer) SetDetector(mode string) error {
	mode = strings.ToUpper(mode)
	return a.sess.WriteAny("DET "+mode, "SENS:DET "+mode)
}

// SetReferenceLevel sets the display reference level in dBm.
func (a *Analyzer) SetReferenceLevel(dbm float64) error {
	return a.sess.WriteAny(
		fmt.Sprintf("DISP:WIND:TRAC:Y:RLEV %G", dbm),
		fmt.Sprintf("DISP:TRAC:Y:RLEV %G", dbm),
		fmt.Sprintf("DISP:WIND1:TRAC1:Y:RLEV %G", dbm),
	)
}

// SetAttenuation sets the input attenuation in dB.
func (a *Analyzer) SetAttenuation(db float64) error {
	return a.sess.WriteAny(
		fmt.Sprintf("INP:ATT %G", db),
		fmt.Sprintf("SENS:POW:ATT %G", db),
	)
}

// SetAttenuationAuto couples or decouples the input attenuation.
func (a *Analyzer) SetAttenuationAuto(on bool) error {
	return a.sess.WriteAny(
		"INP:ATT:AUTO "+onOff(on),
		"SENS:POW:ATT:AUTO "+onOff(on),
	)
}

// SetPreamp switches the internal preamplifier. Rohde & Schwarz analyzers
// use the INP:GAIN subsystem; Keysight spells it POW:GAIN.
func (a *Analyzer) SetPreamp(on bool) error {
	vendor := a.sess.Vendor()
	if strings.Contains(vendor, "ROHDE") || strings.Contains(vendor, "R&S") {
		return a.sess.WriteAny("INP:GAIN:STAT " + onOff(on))
	}
	return a.sess.WriteAny(
		"POW:GAIN "+onOff(on),
		"POW:GAIN:STAT "+onOff(on),
	)
}

// SetAveraging switches trace averaging.
func (a *Analyzer) SetAveraging(on bool) error {
	return a.sess.WriteAny(
		"AVER:STAT "+onOff(on),
		"SENS:AVER:STAT "+onOff(on),
	)
}

// SetAverageCount sets the number of sweeps averaged.
func (a *Analyzer) SetAverageCount(count int) error {
	return a.sess.WriteAny(
		fmt.Sprintf("AVER:COUN %d", count),
		fmt.Sprintf("SENS:AVER:COUN %d", count),
	)
}

// ClearAverages restarts the running average.
func (a *Analyzer) ClearAverages() error {
	return a.sess.WriteAny("AVER:CLE", "SENS:AVER:CLE")
}

// Continuous switches between continuous and single-sweep acquisition.
func (a *Analyzer) Continuous(on bool) error {
	return a.sess.WriteAny(
		"INIT:CONT "+onOff(on),
		"SENS:INIT:CONT "+onOff(on),
	)
}

// SingleSweep disables continuous acquisition, triggers one sweep, and waits
// for it to complete.
func (a *Analyzer) SingleSweep() error {
	if err := a.Continuous(false); err != nil {
		return err
	}
	if err := a.sess.WriteAny("INIT:IMM", "INIT"); err != nil {
		return err
	}
	_, err := a.sess.Query("*OPC?")
	return err
}

// FetchTrace reads the amplitude samples of the given trace, normally in
// dBm. Malformed tokens in the reply are skipped; if nothing parses at all
// (typically because the instrument is in a binary data format), the driver
// forces ASCII format and retries once.
func (a *Analyzer) FetchTrace(trace int) ([]float64, error) {
	trc := fmt.Sprintf("TRACE%d", trace)
	raw, err := a.sess.QueryAny("TRAC:DATA? "+trc, "TRAC? "+trc, "TRAC:DATA?")
	if err != nil {
		return nil, err
	}
	vals := mcd.ParseTrace(raw)
	if len(vals) > 0 {
		return vals, nil
	}

	if err := a.sess.WriteAny("FORM ASC", "FORM:DATA ASC"); err != nil {
		return nil, err
	}
	raw, err = a.sess.QueryAny("TRAC:DATA? "+trc, "TRAC? "+trc, "TRAC:DATA?")
	if err != nil {
		return nil, err
	}
	vals = mcd.ParseTrace(raw)
	if len(vals) == 0 {
		return nil, fmt.Errorf("trace %d: no numeric data in reply %q", trace, raw)
	}
	return vals, nil
}

// FrequencyAxis reconstructs the frequency axis matching FetchTrace from the
// current start/stop frequencies and point count. The instrument is the
// source of truth; nothing is cached locally.
func (a *Analyzer) FrequencyAxis() ([]float64, error) {
	start, stop, err := a.StartStop()
	if err != nil {
		return nil, err
	}
	points, err := a.Points()
	if err != nil {
		return nil, err
	}
	return mcd.FrequencyAxis(start, stop, points), nil
}

// SetMarker switches marker idx on or off.
func (a *Analyzer) SetMarker(idx int, on bool) error {
	return a.sess.WriteAny(
		fmt.Sprintf("CALC:MARK%d:STAT %s", idx, onOff(on)),
		fmt.Sprintf("CALC:MARKER%d:STATE %s", idx, onOff(on)),
	)
}

// SetMarkerX positions marker idx. The frequency must lie within the current
// sweep; out-of-span values are rejected without touching the marker.
func (a *Analyzer) SetMarkerX(idx int, freqHz float64) error {
	start, stop, err := a.StartStop()
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
	return a.sess.WriteAny(
		fmt.Sprintf("CALC:MARK%d:X %G", idx, freqHz),
		fmt.Sprintf("CALC:MARKER%d:X %G", idx, freqHz),
	)
}

// MarkerXY reads the position and amplitude of marker idx.
func (a *Analyzer) MarkerXY(idx int) (x, y float64, err error) {
	reply, err := a.sess.QueryAny(
		fmt.Sprintf("CALC:MARK%d:X?", idx),
		fmt.Sprintf("CALC:MARKER%d:X?", idx),
	)
	if err != nil {
		return 0, 0, err
	}
	if x, err = parseFloat(reply); err != nil {
		return 0, 0, err
	}
	reply, err = a.sess.QueryAny(
		fmt.Sprintf("CALC:MARK%d:Y?", idx),
		fmt.Sprintf("CALC:MARKER%d:Y?", idx),
	)
	if err != nil {
		return 0, 0, err
	}
	if y, err = parseFloat(reply); err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

// ActiveMarkers probes markers 1..max and returns the indexes reporting an
// on state. The probe stops at the first marker the instrument rejects.
func (a *Analyzer) ActiveMarkers(max int) []int {
	var actives []int
	for i := 1; i <= max; i++ {
		reply, err := a.sess.QueryAny(
			fmt.Sprintf("CALC:MARK%d:STAT?", i),
			fmt.Sprintf("CALC:MARKER%d:STATE?", i),
		)
		if err != nil {
			break
		}
		st, err := parseFloat(reply)
		if err != nil {
			break
		}
		if int(st) == 1 {
			actives = append(actives, i)
		}
	}
	return actives
}

// ClearMarkers switches off markers 1..max, stopping at the first one the
// instrument rejects.
func (a *Analyzer) ClearMarkers(max int) {
	for i := 1; i <= max; i++ {
		if err := a.SetMarker(i, false); err != nil {
			break
		}
	}
}

// PeakSearch places marker idx on the highest peak of the current trace and
// makes sure it is on.
func (a *Analyzer) PeakSearch(idx int) error {
	if err := a.sess.WriteAny(
		fmt.Sprintf("CALC:MARK%d:MAX", idx),
		fmt.Sprintf("CALC:MARKER%d:MAX", idx),
	); err != nil {
		return err
	}
	return a.SetMarker(idx, true)
}

// NextPeak moves marker idx to the next peak. direction NEXT or RIGHT moves
// right; anything else moves left.
func (a *Analyzer) NextPeak(idx int, direction string) error {
	var err error
	switch strings.ToUpper(direction) {
	case "NEXT", "RIGHT":
		err = a.sess.WriteAny(
			fmt.Sprintf("CALC:MARK%d:MAX:NEXT", idx),
			fmt.Sprintf("CALC:MARKER%d:MAX:NEXT", idx),
		)
	default:
		err = a.sess.WriteAny(
			fmt.Sprintf("CALC:MARK%d:MAX:LEFT", idx),
			fmt.Sprintf("CALC:MARKER%d:MAX:LEFT", idx),
		)
	}
	if err != nil {
		return err
	}
	return a.SetMarker(idx, true)
}

// DeltaMode sets marker delIdx to report relative to marker refIdx. Most
// instruments implement it by enabling the DELT function on the secondary
// marker.
func (a *Analyzer) DeltaMode(on bool, refIdx, delIdx int) error {
	if !on {
		return a.sess.WriteAny(
			fmt.Sprintf("CALC:MARK%d:FUNC:STAT OFF", delIdx),
			fmt.Sprintf("CALC:MARKER%d:FUNC:STATE OFF", delIdx),
		)
	}
	if err := a.sess.WriteAny(
		fmt.Sprintf("CALC:MARK%d:FUNC:TYPE DELT; CALC:MARK%d:FUNC:STAT ON", delIdx, delIdx),
		fmt.Sprintf("CALC:MARKER%d:FUNC:TYPE DELT; CALC:MARKER%d:FUNC:STATE ON", delIdx, delIdx),
		fmt.Sprintf("CALC:MARK%d:MODE DELT", delIdx),
	); err != nil {
		return err
	}
	if err := a.SetMarker(refIdx, true); err != nil {
		return err
	}
	return a.SetMarker(delIdx, true)
}

// DeltaReading returns (deltaFreqHz, deltaAmpDB) between markers delIdx and
// refIdx. Instruments without a direct delta readout fall back to subtracting
// the two markers' individually read coordinates.
func (a *Analyzer) DeltaReading(refIdx, delIdx int) (dfHz, daDB float64, err error) {
	dfHz, daDB, directErr := a.directDelta(delIdx)
	if directErr == nil {
		return dfHz, daDB, nil
	}

	x1, y1, err := a.MarkerXY(refIdx)
	if err != nil {
		return 0, 0, err
	}
	x2, y2, err := a.MarkerXY(delIdx)
	if err != nil {
		return 0, 0, err
	}
	return x2 - x1, y2 - y1, nil
}

func (a *Analyzer) directDelta(delIdx int) (dfHz, daDB float64, err error) {
	reply, err := a.sess.QueryAny(
		fmt.Sprintf("CALC:MARK%d:DELT:X?", delIdx),
		fmt.Sprintf("CALC:MARKER%d:DELTA:X?", delIdx),
	)
	if err != nil {
		return 0, 0, err
	}
	if dfHz, err = parseFloat(reply); err != nil {
		return 0, 0, err
	}
	reply, err = a.sess.QueryAny(
		fmt.Sprintf("CALC:MARK%d:DELT:Y?", delIdx),
		fmt.Sprintf("CALC:MARKER%d:DELTA:Y?", delIdx),
	)
	if err != nil {
		return 0, 0, err
	}
	if daDB, err = parseFloat(reply); err != nil {
		return 0, 0, err
	}
	return dfHz, daDB, nil
}

// SetPowerUnit selects the amplitude unit, e.g. DBM, DBMV, W.
func (a *Analyzer) SetPowerUnit(unit string) error {
	unit = strings.ToUpper(unit)
	return a.sess.WriteAny("UNIT:POW "+unit, "SENS:UNIT:POW "+unit)
}

// SetTraceMode switches a trace between clear/write and averaged display.
func (a *Analyzer) SetTraceMode(trace int, averaged bool) error {
	mode := "WRIT"
	if averaged {
		mode = "AVER"
	}
	return a.sess.WriteAny(
		fmt.Sprintf("DISP:TRAC%d:MODE %s", trace, mode),
		fmt.Sprintf("DISP:WIND1:TRAC%d:MODE %s", trace, mode),
	)
}

// Screenshot stores a PNG hardcopy under the given name on the instrument's
// mass storage (R&S HCOP command set) and waits for it to finish.
// Transferring the file off the instrument is up to the caller.
func (a *Analyzer) Screenshot(name string) error {
	if err := a.sess.Write("HCOP:DEV:LANG PNG"); err != nil {
		return err
	}
	if err := a.sess.Writef("MMEM:NAME '%s'", name); err != nil {
		return err
	}
	if err := a.sess.Write("HCOP:IMM"); err != nil {
		return err
	}
	_, err := a.sess.Query("*OPC?")
	return err
}

func parseFloat(reply string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(reply), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %q as float: %w", reply, err)
	}
	return f, nil
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
