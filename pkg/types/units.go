package types

import "fmt"

// Energy is a float64 wrapper representing an amount of energy in kWh.
type Energy float64

// Humanized returns a human-readable string with automatic unit (kWh, MWh, GWh, TWh).
func (e Energy) Humanized() string {
	v := float64(e)
	neg := ""
	if v < 0 {
		neg = "-"
		v = -v
	}
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%s%.2f TWh", neg, v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%s%.2f GWh", neg, v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%s%.2f MWh", neg, v/1e3)
	default:
		return fmt.Sprintf("%s%.2f kWh", neg, v)
	}
}

// KWh returns the plain kWh value.
func (e Energy) KWh() float64 { return float64(e) }

// MWh returns the value in MWh.
func (e Energy) MWh() float64 { return float64(e) / 1e3 }

// GWh returns the value in GWh.
func (e Energy) GWh() float64 { return float64(e) / 1e6 }

// Percent is a dimensionless fraction reported as a percentage.
// The underlying value is the raw fraction (0.01 == 1%).
type Percent float64

// Value returns the fraction scaled to percent.
func (p Percent) Value() float64 { return float64(p) * 100 }

func (p Percent) String() string { return fmt.Sprintf("%.6f %%", float64(p)*100) }
