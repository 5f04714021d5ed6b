package f1web

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/itsmrval/willitbemax/lib/f1"

	"github.com/PuerkitoBio/goquery"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"
)

func TestParseDayMonth(t *testing.T) {
	ts, ok := parseDayMonth("2 Mar", 2024)
	require.True(t, ok)
	require.Equal(t, time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC).Unix(), ts)

	ts, ok = parseDayMonth("24 may 2024", 2024)
	require.True(t, ok)
	require.Equal(t, time.Date(2024, time.May, 24, 0, 0, 0, 0, time.UTC).Unix(), ts)

	_, ok = parseDayMonth("sometime in March", 2024)
	require.False(t, ok)
}

func TestLapsFromLabel(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<dl><dt>Number of Laps</dt><dd>57</dd></dl>
	`))
	require.NoError(t, err)

	laps, ok := lapsFromLabel(doc)
	require.True(t, ok)
	require.Equal(t, 57, laps)

	doc, err = goquery.NewDocumentFromReader(strings.NewReader(`<p>No laps here</p>`))
	require.NoError(t, err)
	_, ok = lapsFromLabel(doc)
	require.False(t, ok)
}

func TestLapsFromText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<p>The race runs for 66 laps around the circuit.</p>
	`))
	require.NoError(t, err)

	laps, ok := lapsFromText(doc)
	require.True(t, ok)
	require.Equal(t, 66, laps)
}

func TestWeekendDatesTextFallback(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<span>01 Mar</span>
		<span>29 Feb</span>
		<span>02 Mar</span>
	`))
	require.NoError(t, err)

	first, end := weekendDates(doc, 2024)
	require.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC).Unix(), first)
	require.Equal(t, time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC).Unix(), end)
}

func TestWeekendDatesNothingFound(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<p>no dates at all</p>`))
	require.NoError(t, err)

	first, end := weekendDates(doc, 2024)
	require.Zero(t, first)
	require.Zero(t, end)
}

const roundPage = `
<html><head>
<script type="application/ld+json">
{"@type":"SportsEvent","name":"Bahrain Grand Prix 2024","startDate":"2024-02-29","endDate":"2024-03-02",
 "location":{"name":"Bahrain International Circuit",
  "address":{"addressLocality":"Sakhir","addressCountry":"Bahrain"},
  "geo":{"latitude":26.0325,"longitude":50.5106}}}
</script>
</head><body>
<dl><dt>Number of Laps</dt><dd>57</dd></dl>
<a href="/en/results/2024/races/1229/sakhir/race-result">Race</a>
<a href="/en/results/2024/races/1229/sakhir/qualifying">Qualifying</a>
<a href="/en/results/2024/races/1229/sakhir/pit-stop-summary">Pit stops</a>
</body></html>`

const racePage = `
<html><body>
<span>02 Mar 2024</span>
<table><tbody>
<tr><td>1</td><td>1</td><td>Max VerstappenVER</td><td>Red Bull Racing</td><td>57</td><td>1:31:44.742</td></tr>
<tr><td>2</td><td>11</td><td>Sergio PerezPER</td><td>Red Bull Racing</td><td>57</td><td>+22.457s</td></tr>
</tbody></table>
</body></html>`

const qualifyingPage = `
<html><body>
<span>01 Mar 2024</span>
<table><tbody>
<tr><td>1</td><td>1</td><td>Max VerstappenVER</td><td>Red Bull Racing</td><td>1:29.179</td></tr>
</tbody></table>
</body></html>`

func TestRoundExtractionIsDeterministic(t *testing.T) {
	client := NewClient(ClientOptions{
		BaseUrl: "https://motorsport.test",
		Delay:   time.Millisecond,
		Now: func() time.Time {
			return time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
		},
	})
	httpmock.ActivateNonDefault(client.HttpClient().GetClient())
	defer httpmock.DeactivateAndReset()
	registerRoundResponders("https://motorsport.test")

	page := strings.Replace(roundPage, "</body>",
		`<img src="/content/Bahrain_Circuit.png" alt="Bahrain circuit map"></body>`, 1)
	httpmock.RegisterResponder("GET", "https://motorsport.test/en/racing/2024/sakhir",
		httpmock.NewStringResponder(200, page))
	httpmock.RegisterResponder("GET", "https://motorsport.test/content/Bahrain_Circuit.png",
		httpmock.NewStringResponder(200, "png-bytes"))

	meta := RoundMeta{RoundID: 0, Location: "sakhir", Name: "Bahrain Grand Prix"}
	first, err := client.Round(context.Background(), 2024, meta, FetchOptions{})
	require.NoError(t, err)
	second, err := client.Round(context.Background(), 2024, meta, FetchOptions{})
	require.NoError(t, err)

	require.Equal(t, []byte("png-bytes"), first.Circuit.Image)
	require.Equal(t, first, second)
}

func registerRoundResponders(base string) {
	httpmock.RegisterResponder("GET", base+"/en/racing/2024/sakhir",
		httpmock.NewStringResponder(200, roundPage))
	httpmock.RegisterResponder("GET", base+"/en/results/2024/races/1229/sakhir/race-result",
		httpmock.NewStringResponder(200, racePage))
	httpmock.RegisterResponder("GET", base+"/en/results/2024/races/1229/sakhir/qualifying",
		httpmock.NewStringResponder(200, qualifyingPage))
}

func TestRoundCompleteExtraction(t *testing.T) {
	client := NewClient(ClientOptions{
		BaseUrl: "https://motorsport.test",
		Delay:   time.Millisecond,
		Now: func() time.Time {
			return time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
		},
	})
	httpmock.ActivateNonDefault(client.HttpClient().GetClient())
	defer httpmock.DeactivateAndReset()
	registerRoundResponders("https://motorsport.test")

	round, err := client.Round(context.Background(), 2024,
		RoundMeta{RoundID: 0, Location: "sakhir", Name: "Bahrain Grand Prix"},
		FetchOptions{})
	require.NoError(t, err)

	require.Equal(t, "Bahrain Grand Prix", round.Name)
	require.Equal(t, 2024, round.Season)
	require.Equal(t, "Bahrain International Circuit", round.Circuit.Name)
	require.Equal(t, "Sakhir", round.Circuit.Locality)
	require.Equal(t, "Bahrain", round.Circuit.Country)
	require.Equal(t, "26.0325", round.Circuit.Lat)
	require.Equal(t, "50.5106", round.Circuit.Long)
	require.Equal(t, 57, round.Circuit.Laps)
	require.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC).Unix(), round.FirstDate)
	require.Equal(t, time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC).Unix(), round.EndDate)

	require.Len(t, round.Sessions, 2)
	race := round.Sessions[0]
	require.Equal(t, f1.SessionRace, race.Type)
	require.Equal(t, f1.StatusFinished, race.Status)
	require.Len(t, race.Results, 2)
	require.Equal(t, "Max Verstappen", race.Results[0].DriverName)
	require.Equal(t, 57, race.Results[0].Laps)

	qualifying := round.Sessions[1]
	require.Equal(t, f1.SessionQualifying, qualifying.Type)
	require.Equal(t, "1:29.179", qualifying.Results[0].Time)
	require.Equal(t, 0, qualifying.Results[0].Laps)
}

func TestRoundIncompleteIsRejected(t *testing.T) {
	client := NewClient(ClientOptions{
		BaseUrl: "https://motorsport.test",
		Delay:   time.Millisecond,
	})
	httpmock.ActivateNonDefault(client.HttpClient().GetClient())
	defer httpmock.DeactivateAndReset()

	// structured data without geo coordinates and no laps anywhere
	httpmock.RegisterResponder("GET", "https://motorsport.test/en/racing/2024/sakhir",
		httpmock.NewStringResponder(200, `
<html><head>
<script type="application/ld+json">
{"@type":"SportsEvent","name":"Bahrain Grand Prix 2024","startDate":"2024-02-29","endDate":"2024-03-02",
 "location":{"name":"Bahrain International Circuit",
  "address":{"addressLocality":"Sakhir","addressCountry":"Bahrain"}}}
</script>
</head><body></body></html>`))

	_, err := client.Round(context.Background(), 2024,
		RoundMeta{RoundID: 0, Location: "sakhir", Name: "Bahrain Grand Prix"},
		FetchOptions{})

	var incomplete *IncompleteDataError
	require.ErrorAs(t, err, &incomplete)
	require.Contains(t, incomplete.Missing, "laps")
	require.Contains(t, incomplete.Missing, "lat")
	require.Contains(t, incomplete.Missing, "long")
}

const locationlessRoundPage = `
<html><head>
<script type="application/ld+json">
{"@type":"SportsEvent","name":"Bahrain Grand Prix 2024","startDate":"2024-02-29","endDate":"2024-03-02"}
</script>
</head><body>
<dl><dt>Number of Laps</dt><dd>57</dd></dl>
<a href="/en/results/2024/races/1229/sakhir/race-result">Race</a>
<a href="/en/results/2024/races/1229/sakhir/qualifying">Qualifying</a>
</body></html>`

type fakeCircuitSource struct {
	circuit f1.Circuit
	err     error
	rounds  []int
}

func (f *fakeCircuitSource) CircuitForRound(_ context.Context, _, round int) (f1.Circuit, error) {
	f.rounds = append(f.rounds, round)
	return f.circuit, f.err
}

func TestRoundCircuitBackfill(t *testing.T) {
	source := &fakeCircuitSource{circuit: f1.Circuit{
		Name:     "Bahrain International Circuit",
		Locality: "Sakhir",
		Country:  "Bahrain",
		Lat:      "26.0325",
		Long:     "50.5106",
	}}
	client := NewClient(ClientOptions{
		BaseUrl:  "https://motorsport.test",
		Delay:    time.Millisecond,
		Circuits: source,
		Now: func() time.Time {
			return time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
		},
	})
	httpmock.ActivateNonDefault(client.HttpClient().GetClient())
	defer httpmock.DeactivateAndReset()
	registerRoundResponders("https://motorsport.test")
	httpmock.RegisterResponder("GET", "https://motorsport.test/en/racing/2024/sakhir",
		httpmock.NewStringResponder(200, locationlessRoundPage))

	round, err := client.Round(context.Background(), 2024,
		RoundMeta{RoundID: 0, Location: "sakhir", Name: "Bahrain Grand Prix"},
		FetchOptions{})
	require.NoError(t, err)

	require.Equal(t, "Bahrain International Circuit", round.Circuit.Name)
	require.Equal(t, "Sakhir", round.Circuit.Locality)
	require.Equal(t, "Bahrain", round.Circuit.Country)
	require.Equal(t, "26.0325", round.Circuit.Lat)
	require.Equal(t, "50.5106", round.Circuit.Long)
	require.Equal(t, []int{1}, source.rounds)
}

func TestRoundCircuitBackfillFailureStillRejected(t *testing.T) {
	source := &fakeCircuitSource{err: errors.New("upstream down")}
	client := NewClient(ClientOptions{
		BaseUrl:  "https://motorsport.test",
		Delay:    time.Millisecond,
		Circuits: source,
	})
	httpmock.ActivateNonDefault(client.HttpClient().GetClient())
	defer httpmock.DeactivateAndReset()
	registerRoundResponders("https://motorsport.test")
	httpmock.RegisterResponder("GET", "https://motorsport.test/en/racing/2024/sakhir",
		httpmock.NewStringResponder(200, locationlessRoundPage))

	_, err := client.Round(context.Background(), 2024,
		RoundMeta{RoundID: 0, Location: "sakhir", Name: "Bahrain Grand Prix"},
		FetchOptions{})

	var incomplete *IncompleteDataError
	require.ErrorAs(t, err, &incomplete)
	require.Contains(t, incomplete.Missing, "lat")
	require.Contains(t, incomplete.Missing, "long")
	require.Equal(t, []int{1}, source.rounds)
}

func TestRoundFailedSessionDateIsFatal(t *testing.T) {
	client := NewClient(ClientOptions{
		BaseUrl: "https://motorsport.test",
		Delay:   time.Millisecond,
	})
	httpmock.ActivateNonDefault(client.HttpClient().GetClient())
	defer httpmock.DeactivateAndReset()
	registerRoundResponders("https://motorsport.test")

	// a result page with a table but no recognizable date
	httpmock.RegisterResponder("GET", "https://motorsport.test/en/results/2024/races/1229/sakhir/race-result",
		httpmock.NewStringResponder(200, `
<html><body><table><tbody>
<tr><td>1</td><td>1</td><td>Max VerstappenVER</td><td>Red Bull Racing</td><td>57</td><td>1:31:44.742</td></tr>
</tbody></table></body></html>`))

	_, err := client.Round(context.Background(), 2024,
		RoundMeta{RoundID: 0, Location: "sakhir", Name: "Bahrain Grand Prix"},
		FetchOptions{})

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, string(f1.SessionRace), parseErr.Session)
}
