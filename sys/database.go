package sys

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/mattn/go-sqlite3"
)

// --- Phase 1: Database Connection & Lifecycle ---

var DB *sql.DB

func InitDatabase(ctx context.Context, dataSourceName string) error {
	// The driver registers itself in init; referencing it keeps the import explicit.
	_ = sqlite3.SQLiteDriver{}

	var err error
	DB, err = sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return err
	}

	DB.SetMaxOpenConns(5)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA cache_size=-2000;",
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, p := range pragmas {
		if _, err := DB.ExecContext(initCtx, p); err != nil {
			return fmt.Errorf(MsgDatabasePragmaError, p, err)
		}
	}

	tx, err := DB.BeginTx(initCtx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tableQueries := []string{
		`CREATE TABLE IF NOT EXISTS bot_config (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS guild_settings (
			guild_id TEXT PRIMARY KEY,
			log_channel_id TEXT,
			volume REAL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS play_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			guild_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			title TEXT NOT NULL,
			artist TEXT,
			requester TEXT,
			played_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_play_history_guild ON play_history (guild_id, played_at)`,
	}

	for _, q := range tableQueries {
		if _, err := tx.ExecContext(initCtx, q); err != nil {
			return fmt.Errorf(MsgDatabaseTableError, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	LogDatabase(MsgDatabaseInitSuccess)
	return nil
}

func CloseDatabase() {
	if DB != nil {
		DB.Close()
	}
}

// --- Phase 2: Bot Persistence ---

// BotConfig helpers are used by the loader for command hash and name caching.
func GetBotConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := DB.QueryRowContext(ctx, "SELECT value FROM bot_config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func SetBotConfig(ctx context.Context, key, value string) error {
	_, err := DB.ExecContext(ctx, `
		INSERT INTO bot_config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

// --- Phase 3: Guild Settings ---

type GuildSettings struct {
	GuildID      snowflake.ID
	LogChannelID snowflake.ID
	Volume       float64
	HasVolume    bool
}

// GetGuildSettings returns the stored settings, or zero settings when the guild has none.
func GetGuildSettings(ctx context.Context, guildID snowflake.ID) (*GuildSettings, error) {
	settings := &GuildSettings{GuildID: guildID}

	var channelStr sql.NullString
	var volume sql.NullFloat64
	err := DB.QueryRowContext(ctx, "SELECT log_channel_id, volume FROM guild_settings WHERE guild_id = ?", guildID.String()).Scan(&channelStr, &volume)
	if err == sql.ErrNoRows {
		return settings, nil
	}
	if err != nil {
		return nil, err
	}

	if channelStr.Valid && channelStr.String != "" {
		settings.LogChannelID, err = snowflake.Parse(channelStr.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse log channel ID '%s' for guild %s: %w", channelStr.String, guildID, err)
		}
	}
	if volume.Valid {
		settings.Volume = volume.Float64
		settings.HasVolume = true
	}
	return settings, nil
}

func SetGuildLogChannel(ctx context.Context, guildID, channelID snowflake.ID) error {
	_, err := DB.ExecContext(ctx, `
		INSERT INTO guild_settings (guild_id, log_channel_id) VALUES (?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET log_channel_id = excluded.log_channel_id, updated_at = CURRENT_TIMESTAMP
	`, guildID.String(), channelID.String())
	return err
}

func SetGuildVolume(ctx context.Context, guildID snowflake.ID, volume float64) error {
	_, err := DB.ExecContext(ctx, `
		INSERT INTO guild_settings (guild_id, volume) VALUES (?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET volume = excluded.volume, updated_at = CURRENT_TIMESTAMP
	`, guildID.String(), volume)
	return err
}

// --- Phase 4: Play History ---

type PlayRecord struct {
	ID        int64
	GuildID   snowflake.ID
	Kind      string
	Title     string
	Artist    string
	Requester string
	PlayedAt  time.Time
}

func AddPlayRecord(ctx context.Context, r *PlayRecord) error {
	_, err := DB.ExecContext(ctx, `
		INSERT INTO play_history (guild_id, kind, title, artist, requester, played_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.GuildID.String(), r.Kind, r.Title, r.Artist, r.Requester, time.Now().UTC())
	return err
}

// GetRecentPlays returns the most recent plays for a guild, newest first.
func GetRecentPlays(ctx context.Context, guildID snowflake.ID, limit int) ([]*PlayRecord, error) {
	rows, err := DB.QueryContext(ctx, `
		SELECT id, guild_id, kind, title, artist, requester, played_at
		FROM play_history WHERE guild_id = ? ORDER BY played_at DESC, id DESC LIMIT ?
	`, guildID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*PlayRecord
	for rows.Next() {
		r := &PlayRecord{}
		var gid string
		var artist, requester sql.NullString
		if err := rows.Scan(&r.ID, &gid, &r.Kind, &r.Title, &artist, &requester, &r.PlayedAt); err != nil {
			return nil, err
		}
		r.GuildID, err = snowflake.Parse(gid)
		if err != nil {
			return nil, fmt.Errorf("failed to parse guild ID '%s' for play %d: %w", gid, r.ID, err)
		}
		r.Artist = artist.String
		r.Requester = requester.String
		records = append(records, r)
	}
	return records, rows.Err()
}

func GetPlayCount(ctx context.Context, guildID snowflake.ID) (int, error) {
	var count int
	err := DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM play_history WHERE guild_id = ?", guildID.String()).Scan(&count)
	return count, err
}

// FormatVolume renders a gain as a whole percentage.
func FormatVolume(v float64) string {
	return strconv.Itoa(int(v*100+0.5)) + "%"
}
