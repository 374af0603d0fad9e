// Package config はアプリケーション設定の読み込みを提供する。
// 環境変数による実行環境設定（config.go）と、
// 取得元・キーワードリストを記述するYAMLファイル（sources.go）の2層構成。
package config

import (
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Archive
	ArchivePath string // JSONファイルアーカイブのパス
	PendingPath string // レビュー待ちキューのJSONファイルパス
	DatabaseURL string // 設定時はPostgresバックエンドを使用する

	// Sources
	SourcesConfigPath string // 取得元・キーワード定義YAMLのパス

	// Fetch
	FetchTimeout       time.Duration
	FetchMaxSize       int64
	FetchMaxConcurrent int

	// Sources (検索API)
	NewsAPIKey string // 未設定の場合は検索APIソースを無効化する

	// Curation
	OpenAIAPIKey string
	OpenAIModel  string

	// Server
	ServerPort string

	// Rate Limit（レビューAPI、req/min）
	RateLimitPerMinute int
}

// Load は環境変数からConfigを読み込む。
// 全項目にデフォルト値があるため必須環境変数はない。
// DATABASE_URLが未設定の場合はJSONファイルバックエンドで動作する。
func Load() (*Config, error) {
	cfg := &Config{
		ArchivePath:        getEnvString("ARCHIVE_PATH", "data/archive.json"),
		PendingPath:        getEnvString("PENDING_PATH", "data/pending.json"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		SourcesConfigPath:  getEnvString("SOURCES_CONFIG", "config/sources.yaml"),
		FetchTimeout:       getEnvDuration("FETCH_TIMEOUT", 15*time.Second),
		FetchMaxSize:       getEnvInt64("FETCH_MAX_SIZE", 5242880),
		FetchMaxConcurrent: getEnvInt("FETCH_MAX_CONCURRENT", 4),
		NewsAPIKey:         os.Getenv("NEWSAPI_API_KEY"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:        getEnvString("OPENAI_MODEL", "gpt-4o-mini"),
		ServerPort:         getEnvString("SERVER_PORT", "8080"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
	}

	return cfg, nil
}

// UsePostgres はアーカイブとレビュー待ちキューをPostgresに保存するかを返す。
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
