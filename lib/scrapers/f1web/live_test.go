package f1web

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/itsmrval/willitbemax/lib/f1"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestDeriveStatus(t *testing.T) {
	now := time.Date(2024, time.March, 2, 16, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		date int64
		want f1.SessionStatus
	}{
		{"no date", 0, f1.StatusUpcoming},
		{"starts later", now.Add(time.Hour).Unix(), f1.StatusUpcoming},
		{"just started", now.Add(-time.Minute).Unix(), f1.StatusLive},
		{"inside the window", now.Add(-liveWindow + time.Minute).Unix(), f1.StatusLive},
		{"window elapsed", now.Add(-liveWindow).Unix(), f1.StatusFinished},
		{"long finished", now.Add(-48 * time.Hour).Unix(), f1.StatusFinished},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, deriveStatus(tt.date, now))
		})
	}
}

func TestDetectLiveSession(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<div class="session-card">
			<span>Qualifying</span>
			<a href="/en/timing">LIVE TIMING</a>
		</div>
	`))
	require.NoError(t, err)

	sessionType, ok := detectLiveSession(doc)
	require.True(t, ok)
	require.Equal(t, f1.SessionQualifying, sessionType)
}

func TestDetectLiveSessionAbsent(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<p>Replays of live timing are available afterwards.</p>
		<div>` + strings.Repeat("live timing filler ", 20) + `</div>
	`))
	require.NoError(t, err)

	// the only short marker-like fragment has no session label nearby
	_, ok := detectLiveSession(doc)
	require.False(t, ok)
}

func TestParseLiveRows(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<table><tbody>
			<tr><td>1</td><td>1</td><td>Max VerstappenVER</td><td>LEADER</td></tr>
			<tr><td>2</td><td>Lando NorrisNOR</td><td>+1.2s</td></tr>
			<tr><td>x</td></tr>
		</tbody></table>
	`))
	require.NoError(t, err)

	rows := parseLiveRows(doc)
	require.Len(t, rows, 2)

	require.Equal(t, 1, rows[0].Position)
	require.Equal(t, 1, rows[0].DriverNumber)
	require.Equal(t, "Max Verstappen", rows[0].DriverName)
	require.Equal(t, "VER", rows[0].DriverCode)
	require.Equal(t, "LEADER", rows[0].Time)

	// no car-number cell, the driver cell shifts left
	require.Equal(t, 2, rows[1].Position)
	require.Equal(t, 0, rows[1].DriverNumber)
	require.Equal(t, "NOR", rows[1].DriverCode)
	require.Equal(t, "+1.2s", rows[1].Time)
}

type fakeRenderer struct {
	html string
	err  error
}

func (f fakeRenderer) Render(ctx context.Context, pageUrl string) (string, error) {
	return f.html, f.err
}

type fakeStandings struct {
	numbers map[string]int
	err     error
	calls   int
}

func (f *fakeStandings) DriverStandings(ctx context.Context, season int) (map[string]int, error) {
	f.calls++
	return f.numbers, f.err
}

const liveTimingPage = `
<html><body><table><tbody>
	<tr><td>2</td><td>Lando NorrisNOR</td><td>+1.2s</td></tr>
	<tr><td>1</td><td>Max VerstappenVER</td><td>LEADER</td></tr>
</tbody></table></body></html>`

func liveClient(renderer Renderer, standings StandingsSource, now time.Time) *Client {
	return NewClient(ClientOptions{
		BaseUrl:       "https://motorsport.test",
		LiveTimingUrl: "https://motorsport.test/timing",
		Renderer:      renderer,
		Standings:     standings,
		Delay:         time.Millisecond,
		Now:           func() time.Time { return now },
	})
}

func emptyDoc(t *testing.T) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html></html>`))
	require.NoError(t, err)
	return doc
}

func TestInjectLiveOverride(t *testing.T) {
	now := time.Date(2024, time.March, 2, 16, 0, 0, 0, time.UTC)
	standings := &fakeStandings{numbers: map[string]int{"VER": 1, "NOR": 4}}
	client := liveClient(fakeRenderer{html: liveTimingPage}, standings, now)

	sessions := []f1.Session{
		{Type: f1.SessionQualifying, Date: now.Add(-24 * time.Hour).Unix()},
		{Type: f1.SessionRace, Date: now.Add(-time.Hour).Unix()},
	}

	out, err := client.injectLive(context.Background(), 2024, emptyDoc(t), sessions, f1.SessionRace)
	require.NoError(t, err)
	require.Len(t, out, 2)

	require.Equal(t, f1.StatusFinished, out[0].Status)
	require.False(t, out[0].IsLive)

	race := out[1]
	require.Equal(t, f1.StatusLive, race.Status)
	require.True(t, race.IsLive)
	require.Len(t, race.Results, 2)
	// rows come back sorted by position with numbers resolved
	require.Equal(t, 1, race.Results[0].Position)
	require.Equal(t, 1, race.Results[0].DriverNumber)
	require.Equal(t, 4, race.Results[1].DriverNumber)
}

func TestInjectLiveDemotesWindowLiveSiblings(t *testing.T) {
	now := time.Date(2024, time.March, 2, 16, 0, 0, 0, time.UTC)
	standings := &fakeStandings{numbers: map[string]int{"VER": 1, "NOR": 4}}
	client := liveClient(fakeRenderer{html: liveTimingPage}, standings, now)

	// both sessions fall inside the 2h window, only the override stays live
	sessions := []f1.Session{
		{Type: f1.SessionSprint, Date: now.Add(-time.Hour).Unix()},
		{Type: f1.SessionRace, Date: now.Add(-time.Minute).Unix()},
	}

	out, err := client.injectLive(context.Background(), 2024, emptyDoc(t), sessions, f1.SessionRace)
	require.NoError(t, err)
	require.Equal(t, f1.StatusFinished, out[0].Status)
	require.False(t, out[0].IsLive)
	require.Equal(t, f1.StatusLive, out[1].Status)
	require.True(t, out[1].IsLive)
}

func TestInjectLiveAppendsUnknownSession(t *testing.T) {
	now := time.Date(2024, time.March, 2, 16, 0, 0, 0, time.UTC)
	standings := &fakeStandings{numbers: map[string]int{"VER": 1, "NOR": 4}}
	client := liveClient(fakeRenderer{html: liveTimingPage}, standings, now)

	sessions := []f1.Session{
		{Type: f1.SessionQualifying, Date: now.Add(-24 * time.Hour).Unix()},
	}

	out, err := client.injectLive(context.Background(), 2024, emptyDoc(t), sessions, f1.SessionRace)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, f1.SessionRace, out[1].Type)
	require.True(t, out[1].IsLive)
}

func TestInjectLiveUnresolvedDriverIsFatal(t *testing.T) {
	now := time.Date(2024, time.March, 2, 16, 0, 0, 0, time.UTC)
	standings := &fakeStandings{numbers: map[string]int{"VER": 1}}
	client := liveClient(fakeRenderer{html: liveTimingPage}, standings, now)

	_, err := client.injectLive(context.Background(), 2024, emptyDoc(t), nil, f1.SessionRace)

	var lookupErr *DriverLookupError
	require.ErrorAs(t, err, &lookupErr)
	require.Equal(t, "NOR", lookupErr.Code)
}

func TestInjectLiveStandingsUnavailableIsFatal(t *testing.T) {
	now := time.Date(2024, time.March, 2, 16, 0, 0, 0, time.UTC)
	standings := &fakeStandings{err: errors.New("standings down")}
	client := liveClient(fakeRenderer{html: liveTimingPage}, standings, now)

	_, err := client.injectLive(context.Background(), 2024, emptyDoc(t), nil, f1.SessionRace)

	var lookupErr *DriverLookupError
	require.ErrorAs(t, err, &lookupErr)
	require.Empty(t, lookupErr.Code)
	require.ErrorContains(t, lookupErr.Err, "standings down")
}

func TestInjectLiveRenderFailureIsFatal(t *testing.T) {
	now := time.Date(2024, time.March, 2, 16, 0, 0, 0, time.UTC)
	client := liveClient(fakeRenderer{err: errors.New("browser down")}, nil, now)

	_, err := client.injectLive(context.Background(), 2024, emptyDoc(t), nil, f1.SessionRace)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
}

func TestInjectLiveNoMarkerLeavesStatusesOnly(t *testing.T) {
	now := time.Date(2024, time.March, 2, 16, 0, 0, 0, time.UTC)
	client := liveClient(nil, nil, now)

	sessions := []f1.Session{
		{Type: f1.SessionRace, Date: now.Add(time.Hour).Unix()},
	}
	out, err := client.injectLive(context.Background(), 2024, emptyDoc(t), sessions, "")
	require.NoError(t, err)
	require.Equal(t, f1.StatusUpcoming, out[0].Status)
	require.False(t, out[0].IsLive)
}
