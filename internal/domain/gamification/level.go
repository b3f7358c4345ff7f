package gamification

import (
	"math"
	"sort"
)

// LevelInfo is a display-ready summary of a learner's level.
type LevelInfo struct {
	Level            int     `json:"level"`
	Title            string  `json:"title"`
	TotalXP          int     `json:"total_xp"`
	ProgressPercent  float64 `json:"progress_percent"`
	CurrentThreshold int     `json:"current_threshold"`
	NextThreshold    *int    `json:"next_threshold,omitempty"`
	XPToNextLevel    int     `json:"xp_to_next_level"`
	IsMaxLevel       bool    `json:"is_max_level"`
}

// LevelCalculator derives levels and titles from cumulative XP.
type LevelCalculator struct {
	table LevelTable
}

// NewLevelCalculator creates a calculator over a validated level table.
func NewLevelCalculator(table LevelTable) *LevelCalculator {
	return &LevelCalculator{table: table}
}

// MaxLevel returns the highest reachable level.
func (c *LevelCalculator) MaxLevel() int {
	return len(c.table.Thresholds)
}

// LevelForXP returns the highest level whose threshold totalXP has reached.
// It is at least 1 and at most MaxLevel.
func (c *LevelCalculator) LevelForXP(totalXP int) int {
	// number of thresholds <= totalXP
	level := sort.SearchInts(c.table.Thresholds, totalXP+1)
	if level < 1 {
		return 1
	}
	return level
}

// ProgressPercent returns how far totalXP is through the current level, in
// [0, 100]. It is 100 at the max level.
func (c *LevelCalculator) ProgressPercent(totalXP int) float64 {
	level := c.LevelForXP(totalXP)
	if level >= c.MaxLevel() {
		return 100
	}

	start := c.table.Thresholds[level-1]
	end := c.table.Thresholds[level]
	pct := 100 * float64(totalXP-start) / float64(end-start)

	return math.Max(0, math.Min(100, pct))
}

// TitleForLevel returns the title for a level. A subject title table, when
// present for subjectCode, wins at the highest configured level not above
// level. Otherwise the global table applies the same way, falling back to the
// level 1 title.
func (c *LevelCalculator) TitleForLevel(level int, subjectCode string) string {
	if subjectCode != "" {
		if titles, ok := c.table.SubjectTitles[subjectCode]; ok {
			if title, ok := titleAtOrBelow(titles, level); ok {
				return title
			}
		}
	}
	if title, ok := titleAtOrBelow(c.table.Titles, level); ok {
		return title
	}
	return c.table.Titles[1]
}

// LevelInfo bundles the level, title and progress of totalXP.
func (c *LevelCalculator) LevelInfo(totalXP int, subjectCode string) LevelInfo {
	level := c.LevelForXP(totalXP)
	info := LevelInfo{
		Level:            level,
		Title:            c.TitleForLevel(level, subjectCode),
		TotalXP:          totalXP,
		ProgressPercent:  c.ProgressPercent(totalXP),
		CurrentThreshold: c.table.Thresholds[level-1],
		IsMaxLevel:       level >= c.MaxLevel(),
	}
	if !info.IsMaxLevel {
		next := c.table.Thresholds[level]
		info.NextThreshold = &next
		info.XPToNextLevel = next - totalXP
	}
	return info
}

func titleAtOrBelow(titles map[int]string, level int) (string, bool) {
	best := 0
	for l := range titles {
		if l <= level && l > best {
			best = l
		}
	}
	if best == 0 {
		return "", false
	}
	return titles[best], true
}
