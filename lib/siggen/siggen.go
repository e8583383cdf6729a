// Package siggen drives an AnaPico APSIN20G signal generator. The command
// set is plain SCPI, so the driver also works with other generators using
// the FREQ/POW/OUTP subsystems.
package siggen

import (
	"fmt"
	"time"

	mcd "github.com/CesarHernandezFogued/measurement-control-drivers"
	"github.com/gotmc/query"
)

// Generator is a signal generator attached to a session. Closing the session
// disables the RF output first.
type Generator struct {
	sess *mcd.Session
}

// Status is a snapshot of the generator's output settings.
type Status struct {
	FreqHz   float64
	PowerDBM float64
	PhaseDeg float64
	Output   bool
}

// New attaches a Generator to an open session and registers the RF-off
// safety command to run when the session closes.
func New(sess *mcd.Session) *Generator {
	sess.OnClose(":OUTP OFF")
	return &Generator{sess: sess}
}

// Session exposes the underlying session.
func (g *Generator) Session() *mcd.Session { return g.sess }

// SetFrequency sets the CW output frequency in Hz.
func (g *Generator) SetFrequency(hz float64) error {
	if hz <= 0 {
		return &mcd.RangeError{Param: "frequency", Value: hz, Message: "must be greater than zero"}
	}
	return g.sess.Writef(":FREQ %G", hz)
}

// Frequency reads back the CW output frequency in Hz.
func (g *Generator) Frequency() (float64, error) {
	return query.Float64(g.sess, ":FREQ?")
}

// SetPower sets the output power in dBm.
func (g *Generator) SetPower(dbm float64) error {
	return g.sess.Writef(":POW %G", dbm)
}

// Power reads back the output power in dBm.
func (g *Generator) Power() (float64, error) {
	return query.Float64(g.sess, ":POW?")
}

// SetAmplitude sets the output amplitude in volts, on units that support
// voltage-denominated level.
func (g *Generator) SetAmplitude(volts float64) error {
	return g.sess.Writef(":VOLT %G", volts)
}

// SetPhase sets the output phase in degrees.
func (g *Generator) SetPhase(deg float64) error {
	return g.sess.Writef(":PHAS %G", deg)
}

// Phase reads back the output phase in degrees.
func (g *Generator) Phase() (float64, error) {
	return query.Float64(g.sess, ":PHAS?")
}

// SetOutput enables or disables the RF output.
func (g *Generator) SetOutput(on bool) error {
	if on {
		return g.sess.Write(":OUTP ON")
	}
	return g.sess.Write(":OUTP OFF")
}

// RFOn enables the RF output.
func (g *Generator) RFOn() error { return g.SetOutput(true) }

// RFOff disables the RF output.
func (g *Generator) RFOff() error { return g.SetOutput(false) }

// Output reads back the RF output state.
func (g *Generator) Output() (bool, error) {
	return query.Bool(g.sess, ":OUTP?")
}

// SetReferenceSource selects the reference clock source, INT or EXT.
func (g *Generator) SetReferenceSource(source string) error {
	if source != "INT" && source != "EXT" {
		return &mcd.RangeError{
			Param:   "reference source",
			Message: fmt.Sprintf("%q must be INT or EXT", source),
		}
	}
	return g.sess.Write(":ROSC:SOUR " + source)
}

// SetReferenceFrequency sets the external reference frequency in Hz,
// typically 10 MHz.
func (g *Generator) SetReferenceFrequency(hz float64) error {
	return g.sess.Writef(":ROSC:EXT:FREQ %G", hz)
}

// ConfigureSine sets frequency and power in one call and optionally enables
// the output.
func (g *Generator) ConfigureSine(freqHz, powerDBM float64, enable bool) error {
	if err := g.SetFrequency(freqHz); err != nil {
		return err
	}
	if err := g.SetPower(powerDBM); err != nil {
		return err
	}
	if enable {
		return g.SetOutput(true)
	}
	return nil
}

// Status reads back frequency, power, phase, and output state.
func (g *Generator) Status() (Status, error) {
	var st Status
	var err error
	if st.FreqHz, err = g.Frequency(); err != nil {
		return st, err
	}
	if st.PowerDBM, err = g.Power(); err != nil {
		return st, err
	}
	if st.PhaseDeg, err = g.Phase(); err != nil {
		return st, err
	}
	if st.Output, err = g.Output(); err != nil {
		return st, err
	}
	return st, nil
}

// Reset restores factory defaults and waits for completion.
func (g *Generator) Reset() error { return g.sess.Reset() }

// Preset restores the vendor preset state.
func (g *Generator) Preset() error { return g.sess.Write(":SYST:PRES") }

// LastError reads one entry from the device error queue.
func (g *Generator) LastError() (string, error) {
	return g.sess.Query(":SYST:ERR?")
}

// DrainErrors empties the device error queue.
func (g *Generator) DrainErrors() ([]string, error) { return g.sess.DrainErrors() }

// FrequencySweep steps the CW frequency from startHz to stopHz inclusive,
// dwelling at each step. The step must be positive.
func (g *Generator) FrequencySweep(startHz, stopHz, stepHz float64, dwell time.Duration) error {
	if stepHz <= 0 {
		return &mcd.RangeError{Param: "frequency step", Value: stepHz, Message: "must be greater than zero"}
	}
	for f := startHz; f <= stopHz; f += stepHz {
		if err := g.SetFrequency(f); err != nil {
			return err
		}
		time.Sleep(dwell)
	}
	return nil
}

// PowerSweep steps the output power from startDBM to stopDBM inclusive,
// dwelling at each step. The step must be positive.
func (g *Generator) PowerSweep(startDBM, stopDBM, stepDB float64, dwell time.Duration) error {
	if stepDB <= 0 {
		return &mcd.RangeError{Param: "power step", Value: stepDB, Message: "must be greater than zero"}
	}
	for p := startDBM; p <= stopDBM; p += stepDB {
		if err := g.SetPower(p); err != nil {
			return err
		}
		time.Sleep(dwell)
	}
	return nil
}
