package attenuation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMuForMaterial(t *testing.T) {
	// Reference values computed from the NIST tabulation at beamline-typical
	// wavelengths.
	muSi, err := MuForMaterial("Si", 0.976254)
	require.NoError(t, err)
	require.InDelta(t, 3.9220836, muSi, 1e-6)

	muCdTe, err := MuForMaterial("CdTe", 0.4959)
	require.NoError(t, err)
	require.InDelta(t, 7.2858499, muCdTe, 1e-6)
}

func TestMuForUnknownMaterial(t *testing.T) {
	_, err := MuForMaterial("Ge", 1.0)
	require.Error(t, err)
}

func TestMuOutOfRange(t *testing.T) {
	// 1 angstrom is ~12.4 keV; a kilometer-scale wavelength lands far below
	// the tabulated energy grid.
	_, err := SiliconMu(1e13)
	require.Error(t, err)
}
