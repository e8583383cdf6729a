package awg

import (
	"testing"

	mcd "github.com/CesarHernandezFogued/measurement-control-drivers"
	"github.com/CesarHernandezFogued/measurement-control-drivers/internal/scpitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGenerator(t *testing.T) (*Generator, *mcd.Session, *scpitest.Instrument) {
	t.Helper()
	ins := scpitest.New()
	sess, err := mcd.NewSession(ins, mcd.WithoutIdentification())
	require.NoError(t, err)
	return New(sess), sess, ins
}

func TestChannelValidation(t *testing.T) {
	g, _, ins := newGenerator(t)

	var rangeErr *mcd.RangeError
	require.ErrorAs(t, g.SetFrequency(0, 1000), &rangeErr)
	require.ErrorAs(t, g.SetSine(3, 1000, 1, 0, 0), &rangeErr)
	require.ErrorAs(t, g.OutputOn(-1), &rangeErr)
	assert.Empty(t, ins.Commands())
}

func TestSetSineClampsAmplitude(t *testing.T) {
	g, _, ins := newGenerator(t)

	require.NoError(t, g.SetSine(1, 1000, 0.0001, 0, 0))
	assert.Equal(t, []string{":SOUR1:APPL:SIN 1000,0.001,0"}, ins.Commands())
}

func TestSetSineWritesPhaseOnlyWhenNonzero(t *testing.T) {
	g, _, ins := newGenerator(t)

	require.NoError(t, g.SetSine(2, 500, 1, 0.5, 90))
	assert.Equal(t, []string{
		":SOUR2:APPL:SIN 500,1,0.5",
		":SOUR2:PHAS 90",
	}, ins.Commands())
}

func TestUploadWaveformSequence(t *testing.T) {
	g, _, ins := newGenerator(t)

	// 2.0 and -2.0 are clamped to the +/-1 full-scale range before upload.
	err := g.UploadWaveform(1, "MYARB1", []float32{0.5, 2.0, -2.0}, 1e6, 1.0, 0.25)
	require.NoError(t, err)
	assert.Equal(t, []string{
		":OUTP1:LOAD 50",
		":SOUR1:DATA:VOL:CLE",
		":SOUR1:DATA:ARB MYARB1,",
		":SOUR1:FUNC ARB",
		":SOUR1:FUNC:ARB MYARB1",
		":SOUR1:FUNC:ARB:SRAT 1E+06",
		":SOUR1:VOLT 1",
		":SOUR1:VOLT:OFFS 0.25",
	}, ins.Commands())
}

func TestUploadWaveformRejectsEmptyData(t *testing.T) {
	g, _, ins := newGenerator(t)

	var rangeErr *mcd.RangeError
	require.ErrorAs(t, g.UploadWaveform(1, "W", nil, 1e6, 1, 0), &rangeErr)
	assert.Empty(t, ins.Commands())
}

func TestSetupBurstValidatesSource(t *testing.T) {
	g, _, ins := newGenerator(t)

	var rangeErr *mcd.RangeError
	require.ErrorAs(t, g.SetupBurst(1, "AUTO", 1), &rangeErr)
	require.ErrorAs(t, g.SetupBurst(1, "EXT", 0), &rangeErr)
	assert.Empty(t, ins.Commands())

	require.NoError(t, g.SetupBurst(1, "EXT", 40))
	assert.Equal(t, []string{
		":SOUR1:BURS:STAT ON",
		":SOUR1:BURS:MODE TRIG",
		":SOUR1:BURS:NCYC 40",
		":TRIG1:SOUR EXT",
	}, ins.Commands())
}

func TestCloseDisablesBothOutputs(t *testing.T) {
	_, sess, ins := newGenerator(t)

	require.NoError(t, sess.Close())
	assert.Equal(t, []string{":OUTP1 OFF", ":OUTP2 OFF"}, ins.Commands())
}
