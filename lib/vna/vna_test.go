package vna

import (
	"testing"

	mcd "github.com/CesarHernandezFogued/measurement-control-drivers"
	"github.com/CesarHernandezFogued/measurement-control-drivers/internal/scpitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAnalyzer(t *testing.T) (*Analyzer, *scpitest.Instrument) {
	t.Helper()
	ins := scpitest.New()
	sess, err := mcd.NewSession(ins, mcd.WithoutIdentification())
	require.NoError(t, err)
	return New(sess), ins
}

func TestSelectTraceReportsInstrumentError(t *testing.T) {
	v, ins := newAnalyzer(t)
	ins.Handle("SYST:ERR?", "-113,\"Undefined header\"")

	err := v.SelectTrace("Trc1", "S21", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Undefined header")
	assert.Equal(t, []string{
		"CALC1:PAR:MEAS 'Trc1','S21'",
		"CALC1:PAR:SEL 'Trc1'",
		"SYST:ERR?",
	}, ins.Commands())
}

func TestSelectTraceCleanErrorQueue(t *testing.T) {
	v, ins := newAnalyzer(t)
	ins.Handle("SYST:ERR?", "0,\"No error\"")

	require.NoError(t, v.SelectTrace("Trc2", "S11", 1))
}

func TestSetSpanRejectsInvertedSpanWithoutIO(t *testing.T) {
	v, ins := newAnalyzer(t)

	err := v.SetSpan(2e9, 2e9, 201)
	var rangeErr *mcd.RangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Empty(t, ins.Commands())
}

func TestSetSpanWrites(t *testing.T) {
	v, ins := newAnalyzer(t)

	require.NoError(t, v.SetSpan(1e9, 2e9, 201))
	assert.Equal(t, []string{
		"SENS:FREQ:STAR 1E+09",
		"SENS:FREQ:STOP 2E+09",
		"SENS:SWE:POIN 201",
	}, ins.Commands())
}

func TestSetMarkerXValidatesAgainstSweepReadback(t *testing.T) {
	v, ins := newAnalyzer(t)
	ins.Handle("SENS:FREQ:STAR?", "1.0E+09")
	ins.Handle("SENS:FREQ:STOP?", "2.0E+09")

	err := v.SetMarkerX(1, 2.5e9)
	var rangeErr *mcd.RangeError
	require.ErrorAs(t, err, &rangeErr)
	for _, cmd := range ins.Commands() {
		assert.NotContains(t, cmd, "MARK")
	}

	require.NoError(t, v.SetMarkerX(1, 1.5e9))
	assert.Contains(t, ins.Commands(), "CALC:MARK1:X 1.5E+09")
}

func TestAllMarkerXYReadsActiveMarkers(t *testing.T) {
	v, ins := newAnalyzer(t)
	ins.Handle("CALC:MARK1:STAT?", "1")
	ins.Handle("CALC:MARK2:STAT?", "1")
	// Marker 3 is rejected, ending the probe.
	ins.Handle("CALC:MARK1:X?", "1.0E+09")
	ins.Handle("CALC:MARK1:Y?", "-3.0")
	ins.Handle("CALC:MARK2:X?", "1.5E+09")
	ins.Handle("CALC:MARK2:Y?", "-6.0")

	readings, err := v.AllMarkerXY(DefaultMaxMarkers)
	require.NoError(t, err)
	assert.Equal(t, []MarkerReading{
		{Marker: 1, FreqHz: 1e9, Value: -3},
		{Marker: 2, FreqHz: 1.5e9, Value: -6},
	}, readings)
}

func TestFrequencyAxisMatchesSweep(t *testing.T) {
	v, ins := newAnalyzer(t)
	ins.Handle("SENS:FREQ:STAR?", "5.9E+09")
	ins.Handle("SENS:FREQ:STOP?", "6.1E+09")
	ins.Handle("SENS:SWE:POIN?", "1601")

	axis, err := v.FrequencyAxis()
	require.NoError(t, err)
	require.Len(t, axis, 1601)
	assert.Equal(t, 5.9e9, axis[0])
	assert.Equal(t, 6.1e9, axis[1600])
}

func TestFetchTraceParsesFormattedData(t *testing.T) {
	v, ins := newAnalyzer(t)
	ins.Handle("CALC1:DATA? FDAT", "-20.1,-20.3,-20.2")

	vals, err := v.FetchTrace(1)
	require.NoError(t, err)
	assert.Equal(t, []float64{-20.1, -20.3, -20.2}, vals)
}
