package chessdto

// AdvisoryRequest is sent to the move-suggestion service.
type AdvisoryRequest struct {
	FEN string `json:"fen"`
}

// AdvisoryResponse carries the suggestion in both notations.
// Move is coordinate notation ("d5f7"), SAN is standard notation ("Qxf7").
type AdvisoryResponse struct {
	SAN  string `json:"san"`
	Move string `json:"move"`
}
