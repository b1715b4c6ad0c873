// Package nist carries tabulated NIST mass-attenuation data for the
// detector sensor materials the module supports. Energies are in MeV and
// mass-attenuation coefficients in cm^2/g, exactly as published; duplicated
// energies mark absorption edges and must be preserved.
package nist

// Material is one tabulated sensor material.
type Material struct {
	// Density in g/cm^3
	Density float64

	// EnergyMeV is the photon energy grid, ascending, with edge duplicates
	EnergyMeV []float64

	// MuRho is mu/rho in cm^2/g at each grid energy
	MuRho []float64
}

// Silicon is the NIST table for Si sensors.
var Silicon = Material{
	Density: 2.33,
	EnergyMeV: []float64{
		0.001, 0.0015, 0.0018389, 0.0018389, 0.002, 0.003, 0.004, 0.005,
		0.006, 0.008, 0.01, 0.015, 0.02, 0.03, 0.04, 0.05,
		0.06, 0.08, 0.1, 0.15, 0.2, 0.3, 0.4, 0.5,
		0.6, 0.8, 1.0, 1.25, 1.5, 2.0, 3.0, 4.0,
		5.0, 6.0, 8.0, 10.0, 15.0, 20.0,
	},
	MuRho: []float64{
		1570.0, 535.5, 309.2, 3192.0, 2777.0, 978.4, 452.9, 245.0,
		147.0, 64.68, 33.89, 10.34, 4.464, 1.436, 0.7012, 0.4385,
		0.3207, 0.2228, 0.1835, 0.1448, 0.1275, 0.1082, 0.09614, 0.08748,
		0.08077, 0.07082, 0.06361, 0.05688, 0.05183, 0.0448, 0.03678, 0.0324,
		0.02967, 0.02788, 0.02574, 0.02462, 0.02352, 0.02338,
	},
}

// CdTe is the NIST table for cadmium telluride sensors.
var CdTe = Material{
	Density: 6.2,
	EnergyMeV: []float64{
		0.0010, 0.001003, 0.001006, 0.001006, 0.00150, 0.0020, 0.0030,
		0.003537, 0.003537, 0.003631, 0.003727, 0.003727, 0.0040, 0.004018,
		0.004018, 0.004177, 0.004341, 0.004341, 0.004475, 0.004612, 0.004612,
		0.004773, 0.004939, 0.004939, 0.0050, 0.0060, 0.0080, 0.010,
		0.0150, 0.020, 0.026711, 0.026711, 0.030, 0.031814, 0.031814,
		0.040, 0.050, 0.060, 0.080, 0.10, 0.150, 0.20,
		0.30, 0.40, 0.50, 0.60, 0.80, 1.0, 1.250,
		1.50, 2.0, 3.0, 4.0, 5.0, 6.0, 8.0,
		10.0, 15.0, 20.0,
	},
	MuRho: []float64{
		7927.0, 7875.0, 7824.0, 8014.0, 3291.0, 1664.0, 614.60,
		406.40, 778.70, 730.0, 684.0, 860.10, 723.0, 715.10,
		793.40, 722.10, 656.20, 932.80, 873.90, 813.50, 943.80,
		870.20, 799.90, 865.30, 839.20, 528.60, 249.20, 138.10,
		46.570, 21.440, 9.8340, 29.430, 21.820, 18.730, 34.920,
		19.30, 10.670, 6.5420, 3.0190, 1.6710, 0.60710, 0.32460,
		0.16280, 0.11470, 0.092910, 0.080420, 0.0660, 0.057420, 0.050430,
		0.045910, 0.04070, 0.036490, 0.035250, 0.035130, 0.035480, 0.036870,
		0.038570, 0.042730, 0.046160,
	},
}
