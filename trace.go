// Copyright (c) 2025–2026 The measurement-control-drivers developers.
// All rights reserved.
// Project site: https://github.com/CesarHernandezFogued/measurement-control-drivers
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package mcd

import (
	"strconv"
	"strings"
)

// ParseTrace extracts the amplitude samples from a raw ASCII trace reply.
// Tokens are separated by commas, semicolons, or line breaks; empty and
// malformed tokens are skipped rather than aborting the parse, preserving the
// order of the values that do parse.
func ParseTrace(raw string) []float64 {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n' || r == '\r'
	})
	vals := make([]float64, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			continue
		}
		vals = append(vals, v)
	}
	return vals
}

// FrequencyAxis reconstructs the linear frequency axis of a sweep from its
// start/stop frequencies and point count: axis[i] = start + i*step with
// step = (stop-start)/(points-1). The endpoints are exact. A sweep of fewer
// than two points yields the one-element axis [start].
func FrequencyAxis(start, stop float64, points int) []float64 {
	if points < 2 {
		return []float64{start}
	}
	step := (stop - start) / float64(points-1)
	axis := make([]float64, points)
	for i := range axis {
		axis[i] = start + float64(i)*step
	}
	axis[points-1] = stop
	return axis
}
