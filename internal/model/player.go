package model

import "time"

// PlayerID uniquely identifies a player on the ladder
type PlayerID string

// Player is a registered ladder participant
type Player struct {
	ID         PlayerID
	Name       string
	CurrentElo int // materialised from the match history
	CreatedAt  time.Time
}

// Clone returns a copy of the player
func (p *Player) Clone() *Player {
	c := *p
	return &c
}
