package consts

const (
	CHARGE    = 1.6021918e-19 // Elementary charge (C)
	BOLTZMANN = 1.3806226e-23 // Boltzmann constant (J/K)
	KELVIN    = 273.15        // Kelvin temperature (K)
)

// Reference device parameters. Device constructors read these as defaults;
// they are model constants, not tuning knobs of the engine.
const (
	// Diode (Ebers-Moll single junction)
	DiodeISat = 2.52e-9
	DiodeVT   = 25.8563e-3
	DiodeEta  = 2.0

	// BJT (Ebers-Moll, shared by NPN and PNP)
	BJTAlphaF = 0.99
	BJTAlphaR = 0.02
	BJTIES    = 2e-14
	BJTVTE    = 26e-3
	BJTICS    = 99e-14
	BJTVTC    = 26e-3

	// Non-linear FET gate capacitances and channel
	NMOSCGSp    = 0.01
	NMOSCGSo    = 0.5
	NMOSPS10    = 0.0
	NMOSPS11    = 0.5
	NMOSCGDp    = 0.5
	NMOSCGDo    = 1.0
	NMOSPD10    = -1.0
	NMOSPD11    = 0.4
	NMOSBetaDS  = 1.3
	NMOSAlphaDS = 0.42

	// COBRA FET channel-current equation
	CobraAlpha  = 1.3
	CobraBeta0  = 0.42
	CobraGamma  = 0.0005
	CobraDelta  = 0.3
	CobraXi     = 0.06
	CobraLambda = 1.5
	CobraMu     = 0.0
	CobraZeta   = 0.18
	CobraVto    = -2.4
)
