package state

import (
	"context"
	"time"

	"github.com/repeale/fp-go"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/llguy/voxsync/pkg/server"
	"github.com/llguy/voxsync/pkg/utils"
)

type Entity struct {
	ID uint `gorm:"primaryKey"`
}

// Session is one stay of one player on the server.
type Session struct {
	Entity

	ClientID uint16 `gorm:"not null"`
	Name     string `gorm:"size:32"`
	Address  string `gorm:"size:64"`
	Joined   time.Time
	// Nil while the player is still connected.
	Ended  *time.Time
	Reason string `gorm:"size:16"`
}

func InitDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(&Session{})
	if err != nil {
		return nil, err
	}

	return db, nil
}

// Recorder writes roster events to the session history.
type Recorder struct {
	db *gorm.DB
}

func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

func (r *Recorder) Record(ctx context.Context, event server.Event) error {
	db := r.db.WithContext(ctx)

	switch event.Kind {
	case server.EventJoined:
		return db.Create(&Session{
			ClientID: event.ClientID,
			Name:     event.Name,
			Address:  event.Address,
			Joined:   event.Time,
		}).Error
	case server.EventLeft:
		ended := event.Time
		return db.Model(&Session{}).
			Where("client_id = ? AND address = ? AND ended IS NULL", event.ClientID, event.Address).
			Updates(map[string]interface{}{
				"ended":  &ended,
				"reason": event.Reason.String(),
			}).Error
	}
	return nil
}

// Online returns the sessions that have not ended.
func (r *Recorder) Online(ctx context.Context) ([]Session, error) {
	var sessions []Session
	err := r.db.WithContext(ctx).Where("ended IS NULL").Order("joined").Find(&sessions).Error
	return sessions, err
}

// History returns the most recent sessions of the named player.
func (r *Recorder) History(ctx context.Context, name string, limit int) ([]Session, error) {
	var sessions []Session
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		Order("joined desc").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

// Names lists everyone who has ever connected, without repeats.
func (r *Recorder) Names(ctx context.Context) ([]string, error) {
	var sessions []Session
	err := r.db.WithContext(ctx).Distinct("name").Order("name").Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return fp.Map(func(session Session) string { return session.Name })(sessions), nil
}

// CloseDangling ends sessions left open by a previous run that did not
// shut down cleanly.
func (r *Recorder) CloseDangling(ctx context.Context, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&Session{}).
		Where("ended IS NULL").
		Updates(map[string]interface{}{
			"ended":  &at,
			"reason": "lost",
		})
	return result.RowsAffected, result.Error
}

// Poll records events until ctx is done.
func (r *Recorder) Poll(ctx context.Context, events *utils.Subscriber[server.Event]) {
	defer events.Done()

	for {
		select {
		case <-ctx.Done():
			r.drain(events)
			return
		case event := <-events.Recv():
			err := r.Record(ctx, event)
			if err != nil {
				log.Error().Err(err).Str("kind", event.Kind.String()).Msg("failed to record session")
			}
		}
	}
}

// drain records whatever was published before shutdown.
func (r *Recorder) drain(events *utils.Subscriber[server.Event]) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for {
		select {
		case event := <-events.Recv():
			err := r.Record(ctx, event)
			if err != nil {
				log.Error().Err(err).Msg("failed to record session")
			}
		default:
			return
		}
	}
}
