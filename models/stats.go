package models

// UserStats summarises an author's track record
type UserStats struct {
	UserID           string  `json:"userId"`
	TotalInvestment  int64   `json:"totalInvestment"`
	TotalRefund      int64   `json:"totalRefund"`
	RecoveryRate     float64 `json:"recoveryRate"`
	HitCount         int     `json:"hitCount"`
	TotalPredictions int     `json:"totalPredictions"`
	CheckedCount     int     `json:"checkedCount"`
	HitRate          float64 `json:"hitRate"`
}

// RankingEntry is one row of the author ranking
type RankingEntry struct {
	Rank  int        `json:"rank"`
	User  *User      `json:"user"`
	Stats *UserStats `json:"stats"`
}
