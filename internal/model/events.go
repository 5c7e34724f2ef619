package model

import "time"

// EventType identifies the kind of ladder change
type EventType string

const (
	EventPlayerRegistered EventType = "player_registered"
	EventPlayerDeleted    EventType = "player_deleted"
	EventMatchRecorded    EventType = "match_recorded"
	EventMatchEdited      EventType = "match_edited"
	EventMatchDeleted     EventType = "match_deleted"
	EventLadderRecomputed EventType = "ladder_recomputed"
)

// Event describes a committed change to the ladder
type Event struct {
	Type      EventType
	Timestamp time.Time
	PlayerID  PlayerID // empty for match-only events
	MatchID   MatchID  // empty for player-only events
	Ratings   map[PlayerID]int
}
