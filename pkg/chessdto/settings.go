package chessdto

// GameSettings are the query parameters of GET /game.
type GameSettings struct {
	Username   string
	Difficulty int
	// Color is "w", "b" or "r".
	Color      string
	NewSession bool
}

// OpponentName returns the server engine's display name for a difficulty level.
func OpponentName(difficulty int) string {
	switch difficulty {
	case 1:
		return "Martin"
	case 2:
		return "Maggus Reischl"
	case 3:
		return "Maggus Carlsen"
	default:
		return "Opponent"
	}
}
