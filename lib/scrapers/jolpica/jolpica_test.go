package jolpica

import (
	"context"
	"testing"
	"time"

	"github.com/itsmrval/willitbemax/lib/f1"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"
)

func mockedClient(t *testing.T) *Client {
	t.Helper()
	client := NewClient(ClientOptions{
		BaseUrl: "https://results.test",
		Now: func() time.Time {
			return time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
		},
	})
	httpmock.ActivateNonDefault(client.HttpClient().GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return client
}

func TestSeasons(t *testing.T) {
	client := mockedClient(t)
	httpmock.RegisterResponder("GET", "https://results.test/seasons.json",
		httpmock.NewStringResponder(200, `{
			"MRData": {"SeasonTable": {"Seasons": [
				{"season": "2023"},
				{"season": "2024"},
				{"season": "2025"},
				{"season": "not-a-year"}
			]}}
		}`))

	seasons, err := client.Seasons(context.Background())
	require.NoError(t, err)
	require.Len(t, seasons, 3)

	require.Equal(t, 2023, seasons[0].Year)
	require.Equal(t, f1.SeasonCompleted, seasons[0].Status)
	require.Equal(t, f1.SeasonInProgress, seasons[1].Status)
	require.Equal(t, f1.SeasonUpcoming, seasons[2].Status)

	require.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC).Unix(), seasons[1].StartDate)
	require.Equal(t, time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC).Unix(), seasons[1].EndDate)
}

func TestSeasonsUpstreamError(t *testing.T) {
	client := mockedClient(t)
	httpmock.RegisterResponder("GET", "https://results.test/seasons.json",
		httpmock.NewStringResponder(502, "bad gateway"))

	_, err := client.Seasons(context.Background())
	require.Error(t, err)
}

func TestDriverStandings(t *testing.T) {
	client := mockedClient(t)
	httpmock.RegisterResponder("GET", "https://results.test/2024/driverstandings.json",
		httpmock.NewStringResponder(200, `{
			"MRData": {"StandingsTable": {"StandingsLists": [
				{"DriverStandings": [
					{"Driver": {"code": "VER", "permanentNumber": "1"}},
					{"Driver": {"code": "NOR", "permanentNumber": "4"}},
					{"Driver": {"code": "", "permanentNumber": "99"}},
					{"Driver": {"code": "XXX", "permanentNumber": "TBC"}}
				]}
			]}}
		}`))

	numbers, err := client.DriverStandings(context.Background(), 2024)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"VER": 1, "NOR": 4}, numbers)
}

func TestCircuitForRound(t *testing.T) {
	client := mockedClient(t)
	httpmock.RegisterResponder("GET", "https://results.test/2024/1/circuits.json",
		httpmock.NewStringResponder(200, `{
			"MRData": {"CircuitTable": {"Circuits": [{
				"circuitName": "Bahrain International Circuit",
				"Location": {
					"lat": "26.0325", "long": "50.5106",
					"locality": "Sakhir", "country": "Bahrain"
				}
			}]}}
		}`))

	circuit, err := client.CircuitForRound(context.Background(), 2024, 1)
	require.NoError(t, err)
	require.Equal(t, f1.Circuit{
		Name:     "Bahrain International Circuit",
		Locality: "Sakhir",
		Country:  "Bahrain",
		Lat:      "26.0325",
		Long:     "50.5106",
	}, circuit)
}

func TestCircuitForRoundUnknown(t *testing.T) {
	client := mockedClient(t)
	httpmock.RegisterResponder("GET", "https://results.test/2024/99/circuits.json",
		httpmock.NewStringResponder(200, `{"MRData": {"CircuitTable": {"Circuits": []}}}`))

	_, err := client.CircuitForRound(context.Background(), 2024, 99)
	require.Error(t, err)
}

func TestHealth(t *testing.T) {
	client := mockedClient(t)
	httpmock.RegisterResponder("GET", "https://results.test/current.json",
		httpmock.NewStringResponder(200, `{}`))
	require.True(t, client.Health(context.Background()))

	httpmock.RegisterResponder("GET", "https://results.test/current.json",
		httpmock.NewStringResponder(500, ""))
	require.False(t, client.Health(context.Background()))
}
