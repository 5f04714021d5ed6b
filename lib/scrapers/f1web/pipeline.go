package f1web

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/itsmrval/willitbemax/lib/f1"

	"go.opentelemetry.io/otel/attribute"
)

// FetchOptions tunes one extraction run.
type FetchOptions struct {
	// OnlyRound restricts the run to a single round id.
	OnlyRound *int
	// LiveOverride forces the given session type to be treated as
	// live, bypassing marker detection.
	LiveOverride f1.SessionType
}

// FetchSeason runs the full extraction pipeline for one season:
// schedule, then each round strictly one at a time with politeness
// pauses in between. Any fatal error aborts the whole batch; a partial
// season is never returned.
func (c *Client) FetchSeason(ctx context.Context, season int, opts FetchOptions) ([]f1.Round, error) {
	ctx, span := tracer.Start(ctx, "client:FetchSeason")
	defer span.End()
	span.SetAttributes(attribute.Int("season", season))

	metas, err := c.Schedule(ctx, season)
	if err != nil {
		return nil, err
	}

	if opts.OnlyRound != nil {
		var filtered []RoundMeta
		for _, meta := range metas {
			if meta.RoundID == *opts.OnlyRound {
				filtered = append(filtered, meta)
			}
		}
		if len(filtered) == 0 {
			return nil, &ParseError{
				Season: season,
				Msg:    fmt.Sprintf("round %d not found in schedule of %d rounds", *opts.OnlyRound, len(metas)),
			}
		}
		metas = filtered
	}

	slog.InfoContext(ctx, "extracting season", "season", season, "rounds", len(metas))

	var rounds []f1.Round
	for _, meta := range metas {
		round, err := c.Round(ctx, season, meta, opts)
		if err != nil {
			// all-or-nothing: one bad round abandons the batch
			return nil, fmt.Errorf("season %d round %d (%s): %w", season, meta.RoundID, meta.Location, err)
		}
		rounds = append(rounds, round)

		slog.DebugContext(ctx, "extracted round",
			"season", season,
			"round_id", round.RoundID,
			"name", round.Name,
			"sessions", len(round.Sessions),
		)

		if err := c.politeWait(ctx); err != nil {
			return nil, err
		}
	}

	return rounds, nil
}
