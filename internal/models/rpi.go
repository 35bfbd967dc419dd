package models

// RPIResult is one team's ranked entry for a calculation date.
// RPI and WinPercentage are stored rounded to four decimal places; ranking
// comparisons happen at full precision before rounding.
type RPIResult struct {
	CalculationDate string  `json:"calculation_date" db:"calculation_date"`
	TeamID          string  `json:"team" db:"team_id"`
	Rank            int     `json:"rank" db:"rank"`
	RPI             float64 `json:"rpi" db:"rpi"`
	WP              float64 `json:"wp" db:"wp"`
	OWP             float64 `json:"owp" db:"owp"`
	OOWP            float64 `json:"oowp" db:"oowp"`
	Wins            int     `json:"wins" db:"wins"`
	Losses          int     `json:"losses" db:"losses"`
	Ties            int     `json:"ties" db:"ties"`
	TotalGames      int     `json:"total_games" db:"total_games"`
	WinPercentage   float64 `json:"win_percentage" db:"win_percentage"`
	Conference      string  `json:"conference" db:"conference"`
	Organization    string  `json:"organization" db:"organization"`
	Division        string  `json:"division" db:"division"`
	Gender          string  `json:"gender" db:"gender"`
	City            string  `json:"city" db:"city"`
	State           string  `json:"state" db:"state"`
}

// ConferenceSummary aggregates the ranked results of one (conference, division)
// group for a calculation date.
type ConferenceSummary struct {
	CalculationDate  string  `json:"calculation_date" db:"calculation_date"`
	Conference       string  `json:"conference" db:"conference"`
	Division         string  `json:"division" db:"division"`
	Rank             int     `json:"rank" db:"rank"`
	TeamsCount       int     `json:"teams_count" db:"teams_count"`
	AvgRPI           float64 `json:"avg_rpi" db:"avg_rpi"`
	AvgWP            float64 `json:"avg_wp" db:"avg_wp"`
	AvgOWP           float64 `json:"avg_owp" db:"avg_owp"`
	AvgOOWP          float64 `json:"avg_oowp" db:"avg_oowp"`
	AvgRank          float64 `json:"avg_rank" db:"avg_rank"`
	AvgWinPercentage float64 `json:"avg_win_percentage" db:"avg_win_percentage"`
	TopRank          int     `json:"top_rank" db:"top_rank"`
	Top25Count       int     `json:"top_25_count" db:"top_25_count"`
	Top50Count       int     `json:"top_50_count" db:"top_50_count"`
	Top100Count      int     `json:"top_100_count" db:"top_100_count"`
}

// RankingSnapshot is the complete published output of one calculation run.
// It is the unit stored in the result cache and always published atomically:
// readers see either the whole snapshot or nothing.
type RankingSnapshot struct {
	CalculationDate string              `json:"calculation_date"`
	TotalTeams      int                 `json:"total_teams"`
	Results         []RPIResult         `json:"results"`
	Conferences     []ConferenceSummary `json:"conferences"`
}
