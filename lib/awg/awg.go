// Package awg drives a Rigol DG922 Pro two-channel arbitrary waveform
// generator.
package awg

import (
	"fmt"

	mcd "github.com/CesarHernandezFogued/measurement-control-drivers"
)

// MinAmplitude is the smallest output amplitude the instrument accepts, in
// volts. SetSine clamps smaller requests to it.
const MinAmplitude = 0.001

// Generator is an arbitrary waveform generator attached to a session.
// Closing the session disables both channel outputs first.
type Generator struct {
	sess *mcd.Session
}

// New attaches a Generator to an open session and registers the output-off
// safety commands for both channels to run when the session closes.
func New(sess *mcd.Session) *Generator {
	sess.OnClose(":OUTP1 OFF", ":OUTP2 OFF")
	return &Generator{sess: sess}
}

// Session exposes the underlying session.
func (g *Generator) Session() *mcd.Session { return g.sess }

func checkChannel(ch int) error {
	if ch < 1 || ch > 2 {
		return &mcd.RangeError{Param: "channel", Value: float64(ch), Message: "must be 1 or 2"}
	}
	return nil
}

// SetOutputLoad sets the expected output load in ohms.
func (g *Generator) SetOutputLoad(ch int, ohms float64) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	return g.sess.Writef(":OUTP%d:LOAD %G", ch, ohms)
}

// SetDC puts the channel into DC mode with the given offset in volts.
func (g *Generator) SetDC(ch int, offset float64) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	return g.sess.Writef(":SOUR%d:APPL:DC DEF,DEF,%G", ch, offset)
}

// SetSine configures a sine output: frequency in Hz, amplitude in volts,
// offset in volts, phase in degrees. Amplitudes below MinAmplitude are
// clamped to it; the phase command is only sent when the phase is nonzero.
func (g *Generator) SetSine(ch int, freqHz, amplitude, offset, phaseDeg float64) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	if amplitude < MinAmplitude {
		g.sess.Logger().Warn().
			Float64("amplitude", amplitude).
			Msgf("amplitude below minimum, clamping to %G V", MinAmplitude)
		amplitude = MinAmplitude
	}
	if err := g.sess.Writef(":SOUR%d:APPL:SIN %G,%G,%G", ch, freqHz, amplitude, offset); err != nil {
		return err
	}
	if phaseDeg != 0 {
		return g.SetPhase(ch, phaseDeg)
	}
	return nil
}

// SetWaveform selects a basic waveform: SIN, SQU, RAMP, PULS, NOIS, DC, USER.
func (g *Generator) SetWaveform(ch int, waveform string) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	return g.sess.Writef(":SOUR%d:FUNC %s", ch, waveform)
}

// SetFrequency sets the output frequency in Hz.
func (g *Generator) SetFrequency(ch int, hz float64) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	return g.sess.Writef(":SOUR%d:FREQ %G", ch, hz)
}

// SetAmplitude sets the output amplitude in volts.
func (g *Generator) SetAmplitude(ch int, volts float64) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	return g.sess.Writef(":SOUR%d:VOLT %G", ch, volts)
}

// SetOffset sets the DC offset in volts.
func (g *Generator) SetOffset(ch int, volts float64) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	return g.sess.Writef(":SOUR%d:VOLT:OFFS %G", ch, volts)
}

// SetPhase sets the output phase in degrees.
func (g *Generator) SetPhase(ch int, deg float64) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	return g.sess.Writef(":SOUR%d:PHAS %G", ch, deg)
}

// SyncPhase aligns the phase between the two channels.
func (g *Generator) SyncPhase() error {
	return g.sess.Write(":SOUR:PHAS:SYNC")
}

// SetOutput enables or disables the channel output.
func (g *Generator) SetOutput(ch int, on bool) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	state := "OFF"
	if on {
		state = "ON"
	}
	return g.sess.Writef(":OUTP%d %s", ch, state)
}

// OutputOn enables the channel output.
func (g *Generator) OutputOn(ch int) error { return g.SetOutput(ch, true) }

// OutputOff disables the channel output.
func (g *Generator) OutputOff(ch int) error { return g.SetOutput(ch, false) }

// UploadWaveform loads samples into the channel's volatile memory under the
// given name and selects it as the active arbitrary waveform. Samples are
// clamped to [-1, 1] before upload. Sample-rate selection is best effort:
// some firmware revisions reject SRAT, which is reported as a warning rather
// than a failure.
func (g *Generator) UploadWaveform(ch int, name string, samples []float32, rateHz, amplitude, offset float64) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	if len(samples) == 0 {
		return &mcd.RangeError{Param: "samples", Message: "waveform must not be empty"}
	}

	clamped := make([]float32, len(samples))
	for i, v := range samples {
		switch {
		case v > 1:
			v = 1
		case v < -1:
			v = -1
		}
		clamped[i] = v
	}

	if err := g.SetOutputLoad(ch, 50); err != nil {
		return err
	}
	if err := g.sess.Writef(":SOUR%d:DATA:VOL:CLE", ch); err != nil {
		return err
	}
	prefix := fmt.Sprintf(":SOUR%d:DATA:ARB %s,", ch, name)
	if err := g.sess.WriteBlock(prefix, clamped); err != nil {
		return err
	}
	if err := g.sess.Writef(":SOUR%d:FUNC ARB", ch); err != nil {
		return err
	}
	if err := g.sess.Writef(":SOUR%d:FUNC:ARB %s", ch, name); err != nil {
		return err
	}
	if err := g.sess.Writef(":SOUR%d:FUNC:ARB:SRAT %G", ch, rateHz); err != nil {
		g.sess.Logger().Warn().Err(err).Int("channel", ch).Msg("sample rate not accepted")
	}
	if err := g.SetAmplitude(ch, amplitude); err != nil {
		return err
	}
	return g.SetOffset(ch, offset)
}

// SetupBurst enables triggered burst mode on the channel with the given
// cycle count and trigger source (EXT, INT, or MAN).
func (g *Generator) SetupBurst(ch int, source string, cycles int) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	switch source {
	case "EXT", "INT", "MAN":
	default:
		return &mcd.RangeError{
			Param:   "trigger source",
			Message: fmt.Sprintf("%q must be EXT, INT, or MAN", source),
		}
	}
	if cycles < 1 {
		return &mcd.RangeError{Param: "burst cycles", Value: float64(cycles), Message: "must be at least 1"}
	}
	if err := g.sess.Writef(":SOUR%d:BURS:STAT ON", ch); err != nil {
		return err
	}
	if err := g.sess.Writef(":SOUR%d:BURS:MODE TRIG", ch); err != nil {
		return err
	}
	if err := g.sess.Writef(":SOUR%d:BURS:NCYC %d", ch, cycles); err != nil {
		return err
	}
	return g.sess.Writef(":TRIG%d:SOUR %s", ch, source)
}

// TriggerManual sends a manual trigger.
func (g *Generator) TriggerManual() error { return g.sess.Write("*TRG") }

// LastError reads one entry from the device error queue.
func (g *Generator) LastError() (string, error) {
	return g.sess.Query(":SYST:ERR?")
}

// DrainErrors empties the device error queue.
func (g *Generator) DrainErrors() ([]string, error) { return g.sess.DrainErrors() }
