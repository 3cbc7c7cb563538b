package database

import (
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"tunebox/internal/models"
)

// Structured codes raised by the daily upload quota triggers. Postgres reports
// them as the SQLSTATE, sqlite as the message prefix.
const (
	AlbumQuotaCode = "MQ001"
	SongQuotaCode  = "MQ002"

	AlbumQuotaMessage = "Unverified artists can only create one album per day."
	SongQuotaMessage  = "Unverified artists can only upload one song per day."
)

// MigrationManager manages database migrations
type MigrationManager struct {
	db     *gorm.DB
	logger *zerolog.Logger
}

// NewMigrationManager creates a new migration manager
func NewMigrationManager(db *gorm.DB, logger *zerolog.Logger) *MigrationManager {
	return &MigrationManager{
		db:     db,
		logger: logger,
	}
}

// Migrate creates the tables and installs the quota triggers for the active dialect
func (m *MigrationManager) Migrate() error {
	if err := m.db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to auto-migrate tables: %w", err)
	}

	if err := m.installQuotaTriggers(); err != nil {
		return fmt.Errorf("failed to install quota triggers: %w", err)
	}

	if m.logger != nil {
		m.logger.Info().Str("dialect", m.db.Dialector.Name()).Msg("Database migrations completed successfully")
	}
	return nil
}

func (m *MigrationManager) installQuotaTriggers() error {
	var statements []string
	switch m.db.Dialector.Name() {
	case "postgres":
		statements = postgresQuotaTriggers()
	case "sqlite":
		statements = sqliteQuotaTriggers()
	default:
		return fmt.Errorf("no quota triggers for dialect %s", m.db.Dialector.Name())
	}

	for _, stmt := range statements {
		if err := m.db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func postgresQuotaTriggers() []string {
	return []string{
		fmt.Sprintf(`CREATE OR REPLACE FUNCTION enforce_album_daily_quota() RETURNS trigger AS $$
BEGIN
	IF EXISTS (SELECT 1 FROM artists WHERE id = NEW.artist_id AND NOT verified)
		AND EXISTS (SELECT 1 FROM albums WHERE artist_id = NEW.artist_id AND create_at::date = NEW.create_at::date) THEN
		RAISE EXCEPTION '%s' USING ERRCODE = '%s';
	END IF;
	RETURN NEW;
END;
$$ LANGUAGE plpgsql`, AlbumQuotaMessage, AlbumQuotaCode),
		`DROP TRIGGER IF EXISTS trg_albums_daily_quota ON albums`,
		`CREATE TRIGGER trg_albums_daily_quota BEFORE INSERT ON albums
	FOR EACH ROW EXECUTE FUNCTION enforce_album_daily_quota()`,

		fmt.Sprintf(`CREATE OR REPLACE FUNCTION enforce_song_daily_quota() RETURNS trigger AS $$
BEGIN
	IF EXISTS (SELECT 1 FROM artists WHERE id = NEW.artist_id AND NOT verified)
		AND EXISTS (SELECT 1 FROM songs WHERE artist_id = NEW.artist_id AND created_at::date = NEW.created_at::date) THEN
		RAISE EXCEPTION '%s' USING ERRCODE = '%s';
	END IF;
	RETURN NEW;
END;
$$ LANGUAGE plpgsql`, SongQuotaMessage, SongQuotaCode),
		`DROP TRIGGER IF EXISTS trg_songs_daily_quota ON songs`,
		`CREATE TRIGGER trg_songs_daily_quota BEFORE INSERT ON songs
	FOR EACH ROW EXECUTE FUNCTION enforce_song_daily_quota()`,
	}
}

func sqliteQuotaTriggers() []string {
	return []string{
		fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS trg_albums_daily_quota
BEFORE INSERT ON albums
FOR EACH ROW
WHEN COALESCE((SELECT verified FROM artists WHERE id = NEW.artist_id), 0) = 0
	AND EXISTS (SELECT 1 FROM albums WHERE artist_id = NEW.artist_id AND date(create_at) = date(NEW.create_at))
BEGIN
	SELECT RAISE(ABORT, '%s: %s');
END`, AlbumQuotaCode, AlbumQuotaMessage),

		fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS trg_songs_daily_quota
BEFORE INSERT ON songs
FOR EACH ROW
WHEN COALESCE((SELECT verified FROM artists WHERE id = NEW.artist_id), 0) = 0
	AND EXISTS (SELECT 1 FROM songs WHERE artist_id = NEW.artist_id AND date(created_at) = date(NEW.created_at))
BEGIN
	SELECT RAISE(ABORT, '%s: %s');
END`, SongQuotaCode, SongQuotaMessage),
	}
}
