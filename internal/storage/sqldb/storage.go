package sqldb

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mcoot/chessladder/internal/model"
	"github.com/mcoot/chessladder/internal/storage"
)

// Storage is a relational implementation of the storage interface backed by gorm
type Storage struct {
	queries
}

// New opens the database described by cfg and migrates the schema
func New(cfg Config) (*Storage, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Driver == DriverSQLite {
		// SQLite allows a single writer; one connection avoids lock errors
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return NewWithDB(db)
}

// NewWithDB wraps an existing gorm connection and migrates the schema
func NewWithDB(db *gorm.DB) (*Storage, error) {
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return &Storage{queries{db: db}}, nil
}

// Migrate creates or updates the ladder tables
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&playerRecord{}, &matchRecord{})
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) Atomically(ctx context.Context, fn func(tx storage.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&tx{queries{db: gtx}})
	})
}

// Close closes the underlying connection pool
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// queries implements the read operations against either the pool or a transaction
type queries struct {
	db *gorm.DB
}

func (q queries) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	var rec playerRecord
	if err := q.db.WithContext(ctx).First(&rec, "id = ?", string(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}
	return rec.toModel(), nil
}

func (q queries) ListPlayers(ctx context.Context) ([]*model.Player, error) {
	var recs []playerRecord
	if err := q.db.WithContext(ctx).Order("name ASC").Order("id ASC").Find(&recs).Error; err != nil {
		return nil, err
	}
	players := make([]*model.Player, len(recs))
	for i := range recs {
		players[i] = recs[i].toModel()
	}
	return players, nil
}

func (q queries) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	var rec matchRecord
	if err := q.db.WithContext(ctx).First(&rec, "id = ?", string(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrMatchNotFound
		}
		return nil, err
	}
	return rec.toModel(), nil
}

func (q queries) ListMatches(ctx context.Context, mq storage.MatchQuery) ([]*model.Match, error) {
	db := q.db.WithContext(ctx).Model(&matchRecord{})
	if !mq.From.IsZero() {
		db = db.Where("played_at >= ?", mq.From.UTC())
	}
	if !mq.To.IsZero() {
		db = db.Where("played_at < ?", mq.To.UTC())
	}
	if mq.PlayerID != "" {
		db = db.Where("player_a_id = ? OR player_b_id = ?", string(mq.PlayerID), string(mq.PlayerID))
	}
	if mq.Descending {
		db = db.Order("played_at DESC").Order("seq DESC")
	} else {
		db = db.Order("played_at ASC").Order("seq ASC")
	}
	if mq.Limit > 0 {
		db = db.Limit(mq.Limit)
	}

	var recs []matchRecord
	if err := db.Find(&recs).Error; err != nil {
		return nil, err
	}
	matches := make([]*model.Match, len(recs))
	for i := range recs {
		matches[i] = recs[i].toModel()
	}
	return matches, nil
}

// tx is a write transaction bound to a gorm transaction handle
type tx struct {
	queries
}

var _ storage.Tx = (*tx)(nil)

func (t *tx) CreatePlayer(ctx context.Context, player *model.Player) error {
	return t.db.WithContext(ctx).Create(playerToRecord(player)).Error
}

func (t *tx) DeletePlayer(ctx context.Context, id model.PlayerID) (int, error) {
	if _, err := t.GetPlayer(ctx, id); err != nil {
		return 0, err
	}

	res := t.db.WithContext(ctx).
		Where("player_a_id = ? OR player_b_id = ?", string(id), string(id)).
		Delete(&matchRecord{})
	if res.Error != nil {
		return 0, res.Error
	}
	if err := t.db.WithContext(ctx).Delete(&playerRecord{}, "id = ?", string(id)).Error; err != nil {
		return 0, err
	}
	return int(res.RowsAffected), nil
}

func (t *tx) CreateMatch(ctx context.Context, match *model.Match) error {
	rec := matchToRecord(match)
	if err := t.db.WithContext(ctx).Create(rec).Error; err != nil {
		return err
	}
	match.Seq = rec.Seq
	return nil
}

func (t *tx) UpdateMatchOutcome(ctx context.Context, id model.MatchID, outcome model.Outcome) error {
	res := t.db.WithContext(ctx).Model(&matchRecord{}).
		Where("id = ?", string(id)).
		Update("outcome", string(outcome))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrMatchNotFound
	}
	return nil
}

func (t *tx) DeleteMatch(ctx context.Context, id model.MatchID) error {
	res := t.db.WithContext(ctx).Delete(&matchRecord{}, "id = ?", string(id))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrMatchNotFound
	}
	return nil
}

func (t *tx) UpdateRatings(ctx context.Context, ratings map[model.PlayerID]int) error {
	// Fixed order keeps lock acquisition consistent across transactions
	ids := make([]model.PlayerID, 0, len(ratings))
	for id := range ratings {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		res := t.db.WithContext(ctx).Model(&playerRecord{}).
			Where("id = ?", string(id)).
			Update("current_elo", ratings[id])
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("update rating of %s: %w", id, model.ErrPlayerNotFound)
		}
	}
	return nil
}
