package repository

import (
	"context"
	"fmt"

	"github.com/WithoutFrost/Eternal-Paradise-Project/types"
)

// GetOrCreateStats returns the stats of a user, writing the default baseline on first access.
func (r *Repository) GetOrCreateStats(ctx context.Context, userID string) (types.Stats, error) {
	if err := requireIDs(userID); err != nil {
		return types.Stats{}, err
	}
	value, err := r.store.Read(ctx, statsPath(userID))
	if err != nil {
		return types.Stats{}, err
	}
	if value == nil {
		stats := types.DefaultStats()
		if err := r.store.Write(ctx, statsPath(userID), stats); err != nil {
			return types.Stats{}, err
		}
		return stats, nil
	}
	var stats types.Stats
	if err := decode(value, &stats); err != nil {
		return types.Stats{}, fmt.Errorf("stats %s: %w", userID, err)
	}
	if stats.Ranks.Overall == "" {
		stats.Rerank()
	}
	return stats, nil
}

func validScore(name string, v *int) error {
	if v != nil && (*v < types.MinSkill || *v > types.MaxSkill) {
		return invalidArgument("%s must be between %d and %d, got %d", name, types.MinSkill, types.MaxSkill, *v)
	}
	return nil
}

// UpdateStats applies a partial edit. The overall score follows the skills unless the edit overrides it.
func (r *Repository) UpdateStats(ctx context.Context, userID string, update types.StatsUpdate) (types.Stats, error) {
	for _, f := range []struct {
		name  string
		value *int
	}{
		{"speed", update.Speed},
		{"offense", update.Offense},
		{"defense", update.Defense},
		{"shoot", update.Shoot},
		{"pass", update.Pass},
		{"dribble", update.Dribble},
		{"ovr", update.Ovr},
	} {
		if err := validScore(f.name, f.value); err != nil {
			return types.Stats{}, err
		}
	}
	if update.GmRank != nil && *update.GmRank < 1 {
		return types.Stats{}, invalidArgument("gmRank must be positive, got %d", *update.GmRank)
	}
	stats, err := r.GetOrCreateStats(ctx, userID)
	if err != nil {
		return types.Stats{}, err
	}
	update.Apply(&stats)
	var gmRank any
	if stats.GmRank != nil {
		gmRank = *stats.GmRank
	}
	err = r.store.Patch(ctx, statsPath(userID), map[string]any{
		"speed":   stats.Speed,
		"offense": stats.Offense,
		"defense": stats.Defense,
		"shoot":   stats.Shoot,
		"pass":    stats.Pass,
		"dribble": stats.Dribble,
		"ovr":     stats.Ovr,
		"gmRank":  gmRank,
		"ranks":   stats.Ranks,
	})
	if err != nil {
		return types.Stats{}, err
	}
	return stats, nil
}
