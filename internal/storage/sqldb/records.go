package sqldb

import (
	"time"

	"github.com/mcoot/chessladder/internal/model"
)

// playerRecord is the persisted form of a player
type playerRecord struct {
	ID         string    `gorm:"primaryKey;size:64"`
	Name       string    `gorm:"not null;index"`
	CurrentElo int       `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (playerRecord) TableName() string { return "players" }

// matchRecord is the persisted form of a match. Seq doubles as the
// auto-increment primary key so the database assigns insertion order.
type matchRecord struct {
	Seq       int64     `gorm:"primaryKey;autoIncrement"`
	ID        string    `gorm:"uniqueIndex;size:64;not null"`
	PlayerAID string    `gorm:"column:player_a_id;size:64;not null;index"`
	PlayerBID string    `gorm:"column:player_b_id;size:64;not null;index"`
	Outcome   string    `gorm:"size:8;not null"`
	PlayedAt  time.Time `gorm:"not null;index"`
}

func (matchRecord) TableName() string { return "matches" }

func playerToRecord(p *model.Player) *playerRecord {
	return &playerRecord{
		ID:         string(p.ID),
		Name:       p.Name,
		CurrentElo: p.CurrentElo,
		CreatedAt:  p.CreatedAt.UTC(),
	}
}

func (r *playerRecord) toModel() *model.Player {
	return &model.Player{
		ID:         model.PlayerID(r.ID),
		Name:       r.Name,
		CurrentElo: r.CurrentElo,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

func matchToRecord(m *model.Match) *matchRecord {
	return &matchRecord{
		ID:        string(m.ID),
		PlayerAID: string(m.PlayerA),
		PlayerBID: string(m.PlayerB),
		Outcome:   string(m.Outcome),
		PlayedAt:  m.PlayedAt.UTC(),
	}
}

func (r *matchRecord) toModel() *model.Match {
	return &model.Match{
		ID:       model.MatchID(r.ID),
		Seq:      r.Seq,
		PlayerA:  model.PlayerID(r.PlayerAID),
		PlayerB:  model.PlayerID(r.PlayerBID),
		Outcome:  model.Outcome(r.Outcome),
		PlayedAt: r.PlayedAt.UTC(),
	}
}
