package f1web

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDriverNumbersCachesPerSeason(t *testing.T) {
	source := &fakeStandings{numbers: map[string]int{"VER": 1, "NOR": 4}}
	drivers := newDriverNumbers(source)

	first, err := drivers.lookup(context.Background(), 2024)
	require.NoError(t, err)
	require.Equal(t, 1, first["VER"])

	second, err := drivers.lookup(context.Background(), 2024)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, source.calls, "the standings source is hit once per season")

	_, err = drivers.lookup(context.Background(), 2023)
	require.NoError(t, err)
	require.Equal(t, 2, source.calls)
}

func TestDriverNumbersNoSource(t *testing.T) {
	drivers := newDriverNumbers(nil)
	_, err := drivers.lookup(context.Background(), 2024)
	require.Error(t, err)
}
