package engine

import (
	"sort"

	"ncaasoccer_etl/rpi/internal/models"
)

type conferenceKey struct {
	conference string
	division   string
}

// RollupConferences groups ranked team results by (conference, division) and
// produces per-conference summary rows ranked by average RPI. Groups with no
// members are simply not emitted. When divisionFilter is non-empty only
// groups in that division are included.
//
// Averages are arithmetic means over the members' stored values, not a
// re-derivation from the underlying records.
func RollupConferences(results []models.RPIResult, divisionFilter string) []models.ConferenceSummary {
	groups := make(map[conferenceKey][]models.RPIResult)
	for _, r := range results {
		if divisionFilter != "" && r.Division != divisionFilter {
			continue
		}
		key := conferenceKey{conference: r.Conference, division: r.Division}
		groups[key] = append(groups[key], r)
	}

	type rolled struct {
		summary models.ConferenceSummary
		avgRPI  float64
	}

	groupSummaries := make([]rolled, 0, len(groups))
	for key, members := range groups {
		summary, avgRPI := summarize(key, members)
		groupSummaries = append(groupSummaries, rolled{summary: summary, avgRPI: avgRPI})
	}

	// Rank at full precision before the stored values are rounded, the same
	// way team ranking works. Ties broken by conference name, then division.
	sort.SliceStable(groupSummaries, func(i, j int) bool {
		if groupSummaries[i].avgRPI != groupSummaries[j].avgRPI {
			return groupSummaries[i].avgRPI > groupSummaries[j].avgRPI
		}
		if groupSummaries[i].summary.Conference != groupSummaries[j].summary.Conference {
			return groupSummaries[i].summary.Conference < groupSummaries[j].summary.Conference
		}
		return groupSummaries[i].summary.Division < groupSummaries[j].summary.Division
	})

	summaries := make([]models.ConferenceSummary, 0, len(groupSummaries))
	for i, g := range groupSummaries {
		g.summary.Rank = i + 1
		summaries = append(summaries, g.summary)
	}

	return summaries
}

// summarize builds one conference row and also returns the unrounded RPI
// average, which is what the group ranking compares.
func summarize(key conferenceKey, members []models.RPIResult) (models.ConferenceSummary, float64) {
	s := models.ConferenceSummary{
		Conference: key.conference,
		Division:   key.division,
		TeamsCount: len(members),
		TopRank:    members[0].Rank,
	}

	var sumRPI, sumWP, sumOWP, sumOOWP, sumRank float64
	var totalWins, totalTies, totalGames int
	for _, m := range members {
		sumRPI += m.RPI
		sumWP += m.WP
		sumOWP += m.OWP
		sumOOWP += m.OOWP
		sumRank += float64(m.Rank)
		totalWins += m.Wins
		totalTies += m.Ties
		totalGames += m.TotalGames
		if m.Rank < s.TopRank {
			s.TopRank = m.Rank
		}
		if m.Rank <= 25 {
			s.Top25Count++
		}
		if m.Rank <= 50 {
			s.Top50Count++
		}
		if m.Rank <= 100 {
			s.Top100Count++
		}
	}

	n := float64(len(members))
	avgRPI := sumRPI / n
	s.AvgRPI = round4(avgRPI)
	s.AvgWP = round4(sumWP / n)
	s.AvgOWP = round4(sumOWP / n)
	s.AvgOOWP = round4(sumOOWP / n)
	s.AvgRank = round4(sumRank / n)
	if totalGames > 0 {
		s.AvgWinPercentage = round4((float64(totalWins) + 0.5*float64(totalTies)) / float64(totalGames))
	}

	return s, avgRPI
}
