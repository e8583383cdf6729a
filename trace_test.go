// Copyright (c) 2025–2026 The measurement-control-drivers developers.
// All rights reserved.
// Project site: https://github.com/CesarHernandezFogued/measurement-control-drivers
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package mcd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTraceSkipsMalformedTokens(t *testing.T) {
	vals := ParseTrace("-10.5,-20.1,,abc,-5.0")
	assert.Equal(t, []float64{-10.5, -20.1, -5.0}, vals)
}

func TestParseTraceSeparators(t *testing.T) {
	vals := ParseTrace("1.5;2.5\n3.5,4.5\r\n5.5")
	assert.Equal(t, []float64{1.5, 2.5, 3.5, 4.5, 5.5}, vals)
}

func TestParseTraceNoNumericData(t *testing.T) {
	assert.Empty(t, ParseTrace("#42000...binary junk..."))
	assert.Empty(t, ParseTrace(""))
}

func TestFrequencyAxisShape(t *testing.T) {
	cases := []struct {
		start, stop float64
		points      int
	}{
		{1e9, 2e9, 2},
		{1e9, 2e9, 201},
		{0, 1, 3},
		{9.9e9, 10.1e9, 1001},
	}
	for _, tc := range cases {
		axis := FrequencyAxis(tc.start, tc.stop, tc.points)
		require.Len(t, axis, tc.points)
		assert.Equal(t, tc.start, axis[0])
		assert.Equal(t, tc.stop, axis[len(axis)-1])
		for i := 1; i < len(axis); i++ {
			assert.Greater(t, axis[i], axis[i-1], "axis must be strictly increasing at %d", i)
		}
	}
}

func TestFrequencyAxisSinglePoint(t *testing.T) {
	assert.Equal(t, []float64{5e9}, FrequencyAxis(5e9, 6e9, 1))
	assert.Equal(t, []float64{5e9}, FrequencyAxis(5e9, 6e9, 0))
}
