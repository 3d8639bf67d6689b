package sweep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemperatures_DefaultGrid(t *testing.T) {
	ts, err := Temperatures(2.5, 4.0, 0.003)
	require.NoError(t, err)
	require.Len(t, ts, 501)
	assert.Equal(t, 2.5, ts[0])
	assert.InDelta(t, 2.503, ts[1], 1e-12)
	assert.InDelta(t, 4.0, ts[500], 1e-12)
	for i := 1; i < len(ts); i++ {
		assert.InDelta(t, 0.003, ts[i]-ts[i-1], 1e-9, "index %d", i)
	}
}

func TestTemperatures_Partial(t *testing.T) {
	ts, err := Temperatures(1.0, 2.0, 0.3)
	require.NoError(t, err)
	require.Len(t, ts, 4)
	assert.InDelta(t, 1.9, ts[3], 1e-12, "end is not reached exactly")
}

func TestTemperatures_Single(t *testing.T) {
	ts, err := Temperatures(2.269, 2.269, 0.1)
	require.NoError(t, err)
	assert.Equal(t, []float64{2.269}, ts)
}

func TestTemperatures_Invalid(t *testing.T) {
	_, err := Temperatures(2, 1, 0.1)
	assert.Error(t, err)
	_, err = Temperatures(1, 2, 0)
	assert.Error(t, err)
	_, err = Temperatures(1, 2, -0.5)
	assert.Error(t, err)
}

func TestCheckNames(t *testing.T) {
	ts, err := Temperatures(2.5, 4.0, 0.003)
	require.NoError(t, err)
	require.NoError(t, CheckNames("E_", ts))

	err = CheckNames("E_", []float64{2.5, 2.5000001})
	require.ErrorIs(t, err, ErrNameCollision)
}
