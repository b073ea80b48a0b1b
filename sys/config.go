package sys

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultPlaylistDirectory = "./playlist"
	DefaultCacheLength       = 5
	DefaultVolume            = 0.5
	DefaultYoutubeLogoFile   = "assets/youtube.png"
	MaxVolume                = 2.0
)

type Config struct {
	Token             string
	GuildID           string
	DatabasePath      string
	PlaylistDirectory string
	CacheLength       int
	DefaultVolume     float64
	LogChannelID      string
	YoutubeLogoFile   string
	Silent            bool
}

var GlobalConfig *Config

// LoadConfig initializes the configuration from environment variables.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := configFromEnv()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Silent {
		SetSilentMode(true)
	}

	GlobalConfig = cfg
	return cfg, nil
}

func configFromEnv() (*Config, error) {
	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		folder := "."
		if info, err := os.Stat("data"); err == nil && info.IsDir() {
			folder = "./data"
		}
		dbPath = filepath.Join(folder, GetProjectName()+".db")
	}

	playlistDir := os.Getenv("PLAYLIST_DIRECTORY")
	if playlistDir == "" {
		playlistDir = DefaultPlaylistDirectory
	}

	cacheLength := DefaultCacheLength
	if v := strings.TrimSpace(os.Getenv("CACHE_LENGTH")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid CACHE_LENGTH %q: %w", v, err)
		}
		cacheLength = n
	}

	volume := DefaultVolume
	if v := strings.TrimSpace(os.Getenv("DEFAULT_VOLUME")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid DEFAULT_VOLUME %q: %w", v, err)
		}
		volume = f
	}

	logo := os.Getenv("YOUTUBE_LOGO_FILE")
	if logo == "" {
		logo = DefaultYoutubeLogoFile
	}

	silent, _ := strconv.ParseBool(os.Getenv("SILENT"))

	return &Config{
		Token:             os.Getenv("DISCORD_TOKEN"),
		GuildID:           os.Getenv("GUILD_ID"),
		DatabasePath:      dbPath,
		PlaylistDirectory: playlistDir,
		CacheLength:       cacheLength,
		DefaultVolume:     volume,
		LogChannelID:      strings.TrimSpace(os.Getenv("LOG_CHANNEL_ID")),
		YoutubeLogoFile:   logo,
		Silent:            silent,
	}, nil
}

func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf(MsgConfigMissingToken)
	}
	if c.GuildID != "" && (len(c.GuildID) < 17 || len(c.GuildID) > 20) {
		return fmt.Errorf("invalid GUILD_ID: must be a valid Snowflake")
	}
	if c.LogChannelID != "" && (len(c.LogChannelID) < 17 || len(c.LogChannelID) > 20) {
		return fmt.Errorf("invalid LOG_CHANNEL_ID: must be a valid Snowflake")
	}
	if c.CacheLength < 1 {
		return fmt.Errorf(MsgConfigInvalidCache)
	}
	if c.DefaultVolume < 0 || c.DefaultVolume > MaxVolume {
		return fmt.Errorf(MsgConfigInvalidVolume)
	}
	return nil
}

func GetProjectName() string {
	exePath, err := os.Executable()
	projectName := "mp3bot"
	if err == nil {
		projectName = filepath.Base(exePath)
		projectName = strings.TrimSuffix(projectName, ".exe")

		if projectName == "main" || strings.HasPrefix(projectName, "go_build_") || strings.HasSuffix(projectName, ".test") {
			projectName = "mp3bot"
			if modData, err := os.ReadFile("go.mod"); err == nil {
				lines := strings.Split(string(modData), "\n")
				if len(lines) > 0 && strings.HasPrefix(lines[0], "module ") {
					parts := strings.Split(lines[0], "/")
					projectName = strings.TrimSpace(parts[len(parts)-1])
				}
			}
		}
	}
	return projectName
}
