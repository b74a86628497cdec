package domain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/activitystats/internal/domain"
)

func TestRound2HalfAwayFromZero(t *testing.T) {
	require.Equal(t, 2.68, domain.Round2(2.675))
	require.Equal(t, -2.68, domain.Round2(-2.675))
	require.Equal(t, 0.01, domain.Round2(0.005))
	require.Equal(t, 3.0, domain.Round2(2.999))
}

func TestConversions(t *testing.T) {
	require.Equal(t, 4.5, domain.Kilometers(4500))
	require.Equal(t, 0.56, domain.Hours(2000))
	require.InDelta(t, 8.1, domain.SpeedKMH(4500, 2000), 1e-9)
	require.Zero(t, domain.SpeedKMH(4500, 0))
}
