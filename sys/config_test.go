package sys

import (
	"strings"
	"testing"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DISCORD_TOKEN", "GUILD_ID", "DATABASE_PATH", "PLAYLIST_DIRECTORY",
		"CACHE_LENGTH", "DEFAULT_VOLUME", "LOG_CHANNEL_ID", "YOUTUBE_LOGO_FILE", "SILENT",
	} {
		t.Setenv(k, "")
	}
}

func TestConfigFromEnvDefaults(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("DISCORD_TOKEN", "token")

	cfg, err := configFromEnv()
	if err != nil {
		t.Fatalf("configFromEnv failed: %v", err)
	}
	if cfg.PlaylistDirectory != DefaultPlaylistDirectory {
		t.Errorf("PlaylistDirectory = %q, want %q", cfg.PlaylistDirectory, DefaultPlaylistDirectory)
	}
	if cfg.CacheLength != DefaultCacheLength {
		t.Errorf("CacheLength = %d, want %d", cfg.CacheLength, DefaultCacheLength)
	}
	if cfg.DefaultVolume != DefaultVolume {
		t.Errorf("DefaultVolume = %v, want %v", cfg.DefaultVolume, DefaultVolume)
	}
	if cfg.YoutubeLogoFile != DefaultYoutubeLogoFile {
		t.Errorf("YoutubeLogoFile = %q, want %q", cfg.YoutubeLogoFile, DefaultYoutubeLogoFile)
	}
	if !strings.HasSuffix(cfg.DatabasePath, ".db") {
		t.Errorf("DatabasePath = %q, want a .db file", cfg.DatabasePath)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed on defaults: %v", err)
	}
}

func TestConfigFromEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("PLAYLIST_DIRECTORY", "/srv/music")
	t.Setenv("CACHE_LENGTH", " 3 ")
	t.Setenv("DEFAULT_VOLUME", "1.25")
	t.Setenv("DATABASE_PATH", "/tmp/bot.db")
	t.Setenv("SILENT", "true")

	cfg, err := configFromEnv()
	if err != nil {
		t.Fatalf("configFromEnv failed: %v", err)
	}
	if cfg.PlaylistDirectory != "/srv/music" || cfg.CacheLength != 3 || cfg.DefaultVolume != 1.25 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.DatabasePath != "/tmp/bot.db" || !cfg.Silent {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestConfigFromEnvMalformed(t *testing.T) {
	for _, tt := range []struct{ key, value string }{
		{"CACHE_LENGTH", "five"},
		{"DEFAULT_VOLUME", "loud"},
	} {
		t.Run(tt.key, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := configFromEnv(); err == nil {
				t.Errorf("%s=%q accepted", tt.key, tt.value)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{Token: "token", CacheLength: 5, DefaultVolume: 0.5}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing token", func(c *Config) { c.Token = "" }, true},
		{"short guild id", func(c *Config) { c.GuildID = "123" }, true},
		{"guild id", func(c *Config) { c.GuildID = "123456789012345678" }, false},
		{"bad log channel", func(c *Config) { c.LogChannelID = "x" }, true},
		{"zero cache", func(c *Config) { c.CacheLength = 0 }, true},
		{"negative volume", func(c *Config) { c.DefaultVolume = -0.1 }, true},
		{"max volume", func(c *Config) { c.DefaultVolume = MaxVolume }, false},
		{"over max volume", func(c *Config) { c.DefaultVolume = MaxVolume + 0.01 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
