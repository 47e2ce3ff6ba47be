package main

import (
	"testing"

	"AstroAI/internal/usecase"

	"github.com/stretchr/testify/require"
)

func TestBirthRequest_OffsetFallsBackToConfig(t *testing.T) {
	req := require.New(t)
	charts := usecase.NewChartService(nil, usecase.WithDefaultTZOffset(2))

	r, err := birthRequest("Ada", "1990-04-01", "12:30", 41, 29, "", "placidus")
	req.NoError(err)
	req.Nil(r.TZOffsetHours)
	req.Equal("PLACIDUS", r.HouseSystem)
	req.Equal(2.0, charts.BirthData(r).TZOffsetHours)

	r, err = birthRequest("Ada", "1990-04-01", "12:30", 41, 29, "-4.5", "P")
	req.NoError(err)
	req.Equal(-4.5, charts.BirthData(r).TZOffsetHours)
	req.Equal(30, r.Minute)

	_, err = birthRequest("Ada", "1990-04-01", "12:30", 41, 29, "east", "P")
	req.Error(err)

	_, err = birthRequest("Ada", "", "12:30", 41, 29, "", "P")
	req.Error(err)
}
