package request

import "time"

// CreatePlayerRequest is the request body for registering a player
type CreatePlayerRequest struct {
	Name string `json:"name"`
}

// RecordMatchRequest is the request body for recording a match
type RecordMatchRequest struct {
	PlayerAID string `json:"player_a_id"`
	PlayerBID string `json:"player_b_id"`
	Result    string `json:"result"`

	// PlayedAt back-dates the match; omitted means now
	PlayedAt *time.Time `json:"played_at,omitempty"`
}

// UpdateMatchRequest is the request body for editing a match result
type UpdateMatchRequest struct {
	Result string `json:"result"`
}
