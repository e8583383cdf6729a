package specan

import (
	"errors"
	"testing"

	mcd "github.com/CesarHernandezFogued/measurement-control-drivers"
	"github.com/CesarHernandezFogued/measurement-control-drivers/internal/scpitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAnalyzer(t *testing.T, idn string) (*Analyzer, *scpitest.Instrument) {
	t.Helper()
	ins := scpitest.New()
	var opts []mcd.SessionOption
	if idn == "" {
		opts = append(opts, mcd.WithoutIdentification())
	} else {
		ins.Handle("*IDN?", idn)
	}
	sess, err := mcd.NewSession(ins, opts...)
	require.NoError(t, err)
	return New(sess), ins
}

func TestSetSpanRejectsInvertedSpanWithoutIO(t *testing.T) {
	sa, ins := newAnalyzer(t, "")

	err := sa.SetSpan(2e9, 1e9, 201)
	var rangeErr *mcd.RangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, "stop frequency", rangeErr.Param)
	assert.Empty(t, ins.Commands())

	err = sa.SetSpan(1e9, 1e9, 201)
	require.ErrorAs(t, err, &rangeErr)
	assert.Empty(t, ins.Commands())
}

func TestSetSpanUsesFirstAcceptedVariant(t *testing.T) {
	sa, ins := newAnalyzer(t, "")

	require.NoError(t, sa.SetSpan(1e9, 2e9, 201))
	assert.Equal(t, []string{
		"FREQ:STAR 1E+09",
		"FREQ:STOP 2E+09",
		"SWE:POIN 201",
	}, ins.Commands())
}

func TestSetSpanFallsBackToSENSVariant(t *testing.T) {
	sa, ins := newAnalyzer(t, "")
	ins.FailWrites("FREQ:STAR 1E+09", errors.New("undefined header"))

	require.NoError(t, sa.SetSpan(1e9, 2e9, 201))
	assert.Equal(t, []string{
		"FREQ:STAR 1E+09",
		"SENS:FREQ:STAR 1E+09",
		"FREQ:STOP 2E+09",
		"SWE:POIN 201",
	}, ins.Commands())
}

func TestSetCenterSpanRejectsNonPositiveSpan(t *testing.T) {
	sa, ins := newAnalyzer(t, "")

	err := sa.SetCenterSpan(5e9, 0, 1001)
	var rangeErr *mcd.RangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Empty(t, ins.Commands())
}

func TestSetMarkerXRejectsOutOfSpanWithoutMarkerIO(t *testing.T) {
	sa, ins := newAnalyzer(t, "")
	ins.Handle("FREQ:STAR?", "1.0E+09")
	ins.Handle("FREQ:STOP?", "2.0E+09")

	err := sa.SetMarkerX(1, 3e9)
	var rangeErr *mcd.RangeError
	require.ErrorAs(t, err, &rangeErr)
	for _, cmd := range ins.Commands() {
		assert.NotContains(t, cmd, "MARK", "no marker command may be sent")
	}
}

func TestSetMarkerXInSpan(t *testing.T) {
	sa, ins := newAnalyzer(t, "")
	ins.Handle("FREQ:STAR?", "1.0E+09")
	ins.Handle("FREQ:STOP?", "2.0E+09")

	require.NoError(t, sa.SetMarkerX(1, 1.5e9))
	assert.Contains(t, ins.Commands(), "CALC:MARK1:X 1.5E+09")
}

func TestFetchTraceSkipsMalformedTokens(t *testing.T) {
	sa, ins := newAnalyzer(t, "")
	ins.Handle("TRAC:DATA? TRACE1", "-10.5,-20.1,,abc,-5.0")

	vals, err := sa.FetchTrace(1)
	require.NoError(t, err)
	assert.Equal(t, []float64{-10.5, -20.1, -5.0}, vals)
}

func TestFetchTraceForcesASCIIAndRetriesOnce(t *testing.T) {
	sa, ins := newAnalyzer(t, "")
	// First reply is a binary-format header that parses to nothing; after
	// the forced ASCII format the retry succeeds.
	ins.Handle("TRAC:DATA? TRACE1", "#binary", "-1.0,-2.0,-3.0")

	vals, err := sa.FetchTrace(1)
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, -2, -3}, vals)
	assert.Contains(t, ins.Commands(), "FORM ASC")
}

func TestFrequencyAxisFromReadback(t *testing.T) {
	sa, ins := newAnalyzer(t, "")
	ins.Handle("FREQ:STAR?", "1.0E+09")
	ins.Handle("FREQ:STOP?", "2.0E+09")
	ins.Handle("SWE:POIN?", "5")

	axis, err := sa.FrequencyAxis()
	require.NoError(t, err)
	require.Len(t, axis, 5)
	assert.Equal(t, 1e9, axis[0])
	assert.Equal(t, 2e9, axis[4])
}

func TestSingleSweepWaitsForCompletion(t *testing.T) {
	sa, ins := newAnalyzer(t, "")
	ins.Handle("*OPC?", "1")

	require.NoError(t, sa.SingleSweep())
	assert.Equal(t, []string{"INIT:CONT OFF", "INIT:IMM", "*OPC?"}, ins.Commands())
}

func TestSetPreampVendorDialects(t *testing.T) {
	rs, rsIns := newAnalyzer(t, "Rohde&Schwarz,FSV3030,100001,1.30")
	require.NoError(t, rs.SetPreamp(true))
	assert.Contains(t, rsIns.Commands(), "INP:GAIN:STAT ON")

	ks, ksIns := newAnalyzer(t, "Keysight Technologies,N9020B,MY00000001,A.24.05")
	require.NoError(t, ks.SetPreamp(false))
	assert.Contains(t, ksIns.Commands(), "POW:GAIN OFF")
	assert.NotContains(t, ksIns.Commands(), "INP:GAIN:STAT OFF")
}

func TestDeltaReadingPrefersDirectReadout(t *testing.T) {
	sa, ins := newAnalyzer(t, "")
	ins.Handle("CALC:MARK2:DELT:X?", "2.0E+06")
	ins.Handle("CALC:MARK2:DELT:Y?", "-3.5")

	df, da, err := sa.DeltaReading(1, 2)
	require.NoError(t, err)
	assert.Equal(t, 2e6, df)
	assert.Equal(t, -3.5, da)
}

func TestDeltaReadingFallsBackToMarkerCoordinates(t *testing.T) {
	sa, ins := newAnalyzer(t, "")
	ins.Handle("CALC:MARK1:X?", "1.0E+09")
	ins.Handle("CALC:MARK1:Y?", "-10.0")
	ins.Handle("CALC:MARK2:X?", "1.002E+09")
	ins.Handle("CALC:MARK2:Y?", "-13.5")

	df, da, err := sa.DeltaReading(1, 2)
	require.NoError(t, err)
	assert.InDelta(t, 2e6, df, 1)
	assert.InDelta(t, -3.5, da, 1e-9)
}

func TestActiveMarkersStopsAtFirstRejection(t *testing.T) {
	sa, ins := newAnalyzer(t, "")
	ins.Handle("CALC:MARK1:STAT?", "1")
	ins.Handle("CALC:MARK2:STAT?", "0")
	ins.Handle("CALC:MARK3:STAT?", "1")
	// Marker 4 is not handled, so the probe stops there.

	assert.Equal(t, []int{1, 3}, sa.ActiveMarkers(DefaultMaxMarkers))
}
