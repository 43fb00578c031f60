package types

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRankFromValueBoundaries(t *testing.T) {
	tests := []struct {
		value int
		want  Rank
	}{
		{1, RankE},
		{49, RankE},
		{50, RankD},
		{59, RankD},
		{60, RankC},
		{69, RankC},
		{70, RankB},
		{79, RankB},
		{80, RankA},
		{89, RankA},
		{90, RankS},
		{100, RankS},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RankFromValue(tt.value), "value %d", tt.value)
	}
}

func TestOverallIsRoundedMean(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 5000; i++ {
		s := Skills{
			Speed:   1 + r.Intn(100),
			Offense: 1 + r.Intn(100),
			Defense: 1 + r.Intn(100),
			Shoot:   1 + r.Intn(100),
			Pass:    1 + r.Intn(100),
			Dribble: 1 + r.Intn(100),
		}
		sum := s.Speed + s.Offense + s.Defense + s.Shoot + s.Pass + s.Dribble
		want := int(math.Floor(float64(sum)/6 + 0.5))
		st := NewStats(s)
		assert.Equal(t, want, st.Ovr)
		assert.Equal(t, RankFromValue(want), st.Ranks.Overall)
		assert.Equal(t, RankFromValue(s.Pass), st.Ranks.Pass)
	}
}

func TestOverallRoundsHalfUp(t *testing.T) {
	// sum 363 -> mean 60.5
	s := Skills{Speed: 61, Offense: 61, Defense: 61, Shoot: 60, Pass: 60, Dribble: 60}
	assert.Equal(t, 61, s.Overall())
}

func TestDefaultStats(t *testing.T) {
	st := DefaultStats()
	assert.Equal(t, 60, st.Speed)
	assert.Equal(t, 60, st.Ovr)
	assert.Nil(t, st.GmRank)
	assert.Equal(t, RankC, st.Ranks.Overall)
}

func TestStatsUpdateApply(t *testing.T) {
	st := DefaultStats()
	speed := 100
	changed := StatsUpdate{Speed: &speed}.Apply(&st)
	assert.True(t, changed)
	assert.Equal(t, 67, st.Ovr)
	assert.Equal(t, RankS, st.Ranks.Speed)

	ovr := 95
	StatsUpdate{Ovr: &ovr}.Apply(&st)
	assert.Equal(t, 95, st.Ovr)
	assert.Equal(t, RankS, st.Ranks.Overall)

	// an override wins even when skills change in the same edit
	pass := 10
	StatsUpdate{Pass: &pass, Ovr: &ovr}.Apply(&st)
	assert.Equal(t, 95, st.Ovr)
	assert.Equal(t, RankE, st.Ranks.Pass)

	gm := 3
	StatsUpdate{GmRank: &gm}.Apply(&st)
	if assert.NotNil(t, st.GmRank) {
		assert.Equal(t, 3, *st.GmRank)
	}
	StatsUpdate{ClearGmRank: true}.Apply(&st)
	assert.Nil(t, st.GmRank)
}

func TestSkillsValidate(t *testing.T) {
	assert.NoError(t, DefaultStats().Skills.Validate())
	s := DefaultStats().Skills
	s.Dribble = 101
	assert.Error(t, s.Validate())
	s.Dribble = 0
	assert.Error(t, s.Validate())
}
