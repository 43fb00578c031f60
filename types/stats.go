package types

import (
	"fmt"
	"math"
)

type Rank string

const (
	RankS Rank = "S"
	RankA Rank = "A"
	RankB Rank = "B"
	RankC Rank = "C"
	RankD Rank = "D"
	RankE Rank = "E"
)

const (
	MinSkill     = 1
	MaxSkill     = 100
	DefaultSkill = 60
)

// rankThresholds is checked top to bottom, the first threshold that is reached wins.
var rankThresholds = []struct {
	min  int
	rank Rank
}{
	{90, RankS},
	{80, RankA},
	{70, RankB},
	{60, RankC},
	{50, RankD},
}

// RankFromValue maps a score onto its letter rank.
func RankFromValue(v int) Rank {
	for _, t := range rankThresholds {
		if v >= t.min {
			return t.rank
		}
	}
	return RankE
}

// Skills are the six scored attributes of a player.
type Skills struct {
	Speed   int `json:"speed"`
	Offense int `json:"offense"`
	Defense int `json:"defense"`
	Shoot   int `json:"shoot"`
	Pass    int `json:"pass"`
	Dribble int `json:"dribble"`
}

func (s Skills) values() []int {
	return []int{s.Speed, s.Offense, s.Defense, s.Shoot, s.Pass, s.Dribble}
}

// Validate checks that every skill lies within [MinSkill, MaxSkill].
func (s Skills) Validate() error {
	names := []string{"speed", "offense", "defense", "shoot", "pass", "dribble"}
	for i, v := range s.values() {
		if v < MinSkill || v > MaxSkill {
			return fmt.Errorf("%s must be between %d and %d, got %d", names[i], MinSkill, MaxSkill, v)
		}
	}
	return nil
}

// Overall is the arithmetic mean of the six skills rounded half up.
func (s Skills) Overall() int {
	sum := 0
	vals := s.values()
	for _, v := range vals {
		sum += v
	}
	return int(math.Floor(float64(sum)/float64(len(vals)) + 0.5))
}

type Ranks struct {
	Speed   Rank `json:"speed"`
	Offense Rank `json:"offense"`
	Defense Rank `json:"defense"`
	Shoot   Rank `json:"shoot"`
	Pass    Rank `json:"pass"`
	Dribble Rank `json:"dribble"`
	Overall Rank `json:"overall"`
}

type Stats struct {
	Skills `json:",squash"`
	Ovr    int   `json:"ovr"`
	GmRank *int  `json:"gmRank"`
	Ranks  Ranks `json:"ranks"`
}

// NewStats derives the overall score and every rank from the given skills.
func NewStats(s Skills) Stats {
	st := Stats{Skills: s, Ovr: s.Overall()}
	st.Rerank()
	return st
}

// DefaultStats is the baseline every user starts with.
func DefaultStats() Stats {
	return NewStats(Skills{
		Speed:   DefaultSkill,
		Offense: DefaultSkill,
		Defense: DefaultSkill,
		Shoot:   DefaultSkill,
		Pass:    DefaultSkill,
		Dribble: DefaultSkill,
	})
}

// Rerank recomputes the letter ranks from the current skills and overall score.
func (s *Stats) Rerank() {
	s.Ranks = Ranks{
		Speed:   RankFromValue(s.Speed),
		Offense: RankFromValue(s.Offense),
		Defense: RankFromValue(s.Defense),
		Shoot:   RankFromValue(s.Shoot),
		Pass:    RankFromValue(s.Pass),
		Dribble: RankFromValue(s.Dribble),
		Overall: RankFromValue(s.Ovr),
	}
}

// StatsUpdate is a partial stats edit. Ovr overrides the derived overall score; ClearGmRank removes the
// GM-assigned numeric rank.
type StatsUpdate struct {
	Speed       *int `json:"speed,omitempty"`
	Offense     *int `json:"offense,omitempty"`
	Defense     *int `json:"defense,omitempty"`
	Shoot       *int `json:"shoot,omitempty"`
	Pass        *int `json:"pass,omitempty"`
	Dribble     *int `json:"dribble,omitempty"`
	Ovr         *int `json:"ovr,omitempty"`
	GmRank      *int `json:"gmRank,omitempty"`
	ClearGmRank bool `json:"clearGmRank,omitempty"`
}

// Apply merges the update into s and reports whether any skill changed. Overall and ranks are
// recomputed: overall is derived from the skills unless Ovr is given.
func (u StatsUpdate) Apply(s *Stats) (skillsChanged bool) {
	set := func(dst *int, v *int) {
		if v != nil && *dst != *v {
			*dst = *v
			skillsChanged = true
		}
	}
	set(&s.Speed, u.Speed)
	set(&s.Offense, u.Offense)
	set(&s.Defense, u.Defense)
	set(&s.Shoot, u.Shoot)
	set(&s.Pass, u.Pass)
	set(&s.Dribble, u.Dribble)
	switch {
	case u.Ovr != nil:
		s.Ovr = *u.Ovr
	case skillsChanged:
		s.Ovr = s.Skills.Overall()
	}
	if u.ClearGmRank {
		s.GmRank = nil
	} else if u.GmRank != nil {
		r := *u.GmRank
		s.GmRank = &r
	}
	s.Rerank()
	return skillsChanged
}
