package market

import (
	"context"
	"sort"
)

// Position is one track's slice of a user's portfolio.
type Position struct {
	TrackID      string `json:"track_id"`
	StakeCents   int64  `json:"stake_cents"`
	TotalCents   int64  `json:"total_cents"`
	Plays        int64  `json:"plays"`
	RevenueCents int64  `json:"revenue_cents"`
	ReturnCents  int64  `json:"return_cents"`
}

// Revenue converts a play count into earned cents at the configured
// payout rate.
func Revenue(plays, payoutPerPlayCents int64) int64 {
	if plays <= 0 {
		return 0
	}
	return plays * payoutPerPlayCents
}

// ProRataReturn splits track revenue by stake share. Zero or negative
// stakes and totals earn nothing.
func ProRataReturn(stakeCents, totalCents, revenueCents int64) int64 {
	if stakeCents <= 0 || totalCents <= 0 || revenueCents <= 0 {
		return 0
	}
	return revenueCents * stakeCents / totalCents
}

// Portfolio values a user's committed stakes against current play
// counts. Positions come back sorted by return, largest first.
func (m *Market) Portfolio(ctx context.Context, userID string, counts PlayCounts) ([]Position, error) {
	stakes, err := m.ledger.CommittedStakes(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(stakes) == 0 {
		return nil, nil
	}

	trackIDs := make([]string, 0, len(stakes))
	for id := range stakes {
		trackIDs = append(trackIDs, id)
	}
	sort.Strings(trackIDs)

	totals, err := m.ledger.CommittedTotals(ctx, trackIDs)
	if err != nil {
		return nil, err
	}
	plays := map[string]int64{}
	if counts != nil {
		plays, err = counts.CountsForTracks(ctx, trackIDs)
		if err != nil {
			return nil, err
		}
	}

	positions := make([]Position, 0, len(trackIDs))
	for _, id := range trackIDs {
		revenue := Revenue(plays[id], m.cfg.PayoutPerPlayCents)
		positions = append(positions, Position{
			TrackID:      id,
			StakeCents:   stakes[id],
			TotalCents:   totals[id],
			Plays:        plays[id],
			RevenueCents: revenue,
			ReturnCents:  ProRataReturn(stakes[id], totals[id], revenue),
		})
	}
	sort.SliceStable(positions, func(i, j int) bool {
		return positions[i].ReturnCents > positions[j].ReturnCents
	})
	return positions, nil
}
