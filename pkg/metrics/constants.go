package metrics

// Fixed metric definitions. These are part of the metric names (UDI 100-3000,
// sDA 300/50%, ASE 1000/250) rather than run configuration.
const (
	UDILowerLux = 100.0  // below: fallen short
	UDIUpperLux = 3000.0 // above: exceeded

	SDALux      = 300.0 // lux a point must reach
	SDAFraction = 0.5   // share of occupied hours it must reach it for

	ASELux   = 1000.0 // lux counted as direct sun exposure
	ASEHours = 250    // hours per year a point may exceed ASELux
)
