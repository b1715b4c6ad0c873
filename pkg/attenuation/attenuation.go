// Package attenuation computes linear absorption coefficients for detector
// sensor materials from tabulated NIST mass-attenuation data. Only Si and
// CdTe sensors are supported for now.
package attenuation

import (
	"fmt"
	"math"
	"sort"

	"crystio/internal/nist"
)

// hc/e in keV*angstrom, then eV*angstrom.
const (
	factorKeVAngstrom = 6.62607015 * 2.99792458 / 1.602176634
	factorEVAngstrom  = factorKeVAngstrom * 1000.0
)

// MuForMaterial returns the linear attenuation coefficient mu in mm^-1 of
// the named material ("Si" or "CdTe") at the given wavelength in angstrom.
func MuForMaterial(material string, wavelength float64) (float64, error) {
	switch material {
	case "Si":
		return SiliconMu(wavelength)
	case "CdTe":
		return CdTeMu(wavelength)
	default:
		return 0, fmt.Errorf("no absorption coefficients tabulated for material %q", material)
	}
}

// SiliconMu returns mu in mm^-1 for silicon at the given wavelength in
// angstrom.
func SiliconMu(wavelength float64) (float64, error) {
	return muFromWavelength(nist.Silicon, wavelength)
}

// CdTeMu returns mu in mm^-1 for cadmium telluride at the given wavelength
// in angstrom.
func CdTeMu(wavelength float64) (float64, error) {
	return muFromWavelength(nist.CdTe, wavelength)
}

func muFromWavelength(m nist.Material, wavelength float64) (float64, error) {
	ev := factorEVAngstrom / wavelength
	muRho, err := muRhoAtEV(m, ev)
	if err != nil {
		return 0, err
	}
	// cm^2/g * g/cm^3 = cm^-1; divide by 10 for mm^-1.
	return muRho * m.Density / 10.0, nil
}

// muRhoAtEV interpolates mu/rho at the given energy in eV. Interpolation is
// linear in log-log space between the bracketing grid points; duplicated
// grid energies (absorption edges) resolve to the segment below the edge.
func muRhoAtEV(m nist.Material, energyEV float64) (float64, error) {
	energy := energyEV / 1e6

	// Index of the first grid energy >= energy, minus one: same bracketing
	// as a lower_bound search so edge behavior matches the tabulation.
	i := sort.SearchFloat64s(m.EnergyMeV, energy) - 1
	if i < 0 || i+1 >= len(m.EnergyMeV) {
		return 0, fmt.Errorf("energy %g eV outside tabulated range", energyEV)
	}

	x0 := math.Log(m.EnergyMeV[i])
	x1 := math.Log(m.EnergyMeV[i+1])
	y0 := math.Log(m.MuRho[i])
	y1 := math.Log(m.MuRho[i+1])
	x := math.Log(energy)
	return math.Exp(y0 + (y1-y0)*(x-x0)/(x1-x0)), nil
}
