package chessdto

// ScoreEntry is one row of GET /scoreboard, most significant first.
type ScoreEntry struct {
	Winner string  `json:"winner"`
	Score  float64 `json:"score"`
}
