package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawPositionNormalize(t *testing.T) {
	raw := RawPosition{
		ID:                      "0xabc",
		Owner:                   "0xowner",
		CurrentOSQTHAmount:      "-3000000000000000000",
		CurrentETHAmount:        "1000000000000000000",
		UnrealizedOSQTHUnitCost: "95500000",
		UnrealizedETHUnitCost:   "1000000000",
		RealizedOSQTHAmount:     "500000000000000000",
		RealizedOSQTHUnitGain:   "120000000",
	}

	pos, err := raw.Normalize()
	require.NoError(t, err)

	assert.Equal(t, "0xowner", pos.Account)
	assert.Equal(t, "-3", pos.CurrentOSQTHAmount.String())
	assert.Equal(t, "1", pos.CurrentETHAmount.String())
	assert.Equal(t, "95.5", pos.UnrealizedOSQTHUnitCost.String())
	assert.Equal(t, "1000", pos.UnrealizedETHUnitCost.String())
	assert.Equal(t, "0.5", pos.RealizedOSQTHAmount.String())
	assert.Equal(t, "120", pos.RealizedOSQTHUnitGain.String())
	assert.True(t, pos.RealizedETHAmount.IsZero())
}

func TestRawPositionNormalizeFallsBackToID(t *testing.T) {
	pos, err := RawPosition{ID: "0xid"}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "0xid", pos.Account)
}

func TestRawPositionNormalizeRejectsBadField(t *testing.T) {
	_, err := RawPosition{CurrentETHAmount: "12abc"}.Normalize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "currentETHAmount")
}
