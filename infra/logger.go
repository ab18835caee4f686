package infra

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger 初始化全域 zerolog，level 為空時讀取 LOG_LEVEL
func InitLogger(level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = NewLogger(consoleOrJSON(os.Stdout), level).
		With().
		Str("service", "printshop-backend").
		Str("environment", getEnvironment()).
		Str("hostname", getHostname()).
		Logger()
}

// NewLogger 建立寫入指定輸出的 logger，同時設定全域級別
func NewLogger(w io.Writer, level string) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(level))
	return zerolog.New(w).With().Timestamp().Logger()
}

// consoleOrJSON 開發環境用 console 格式，production 輸出 JSON
func consoleOrJSON(out io.Writer) io.Writer {
	if getEnvironment() == "production" {
		return out
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: "2006-01-02 15:04:05"}
}

func getEnvironment() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "development"
	}
	return env
}

func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}

func parseLevel(levelStr string) zerolog.Level {
	if levelStr == "" {
		levelStr = os.Getenv("LOG_LEVEL")
	}
	if levelStr == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// GetLogger 獲取特定模組的 logger
func GetLogger(module string) zerolog.Logger {
	return log.With().Str("module", module).Logger()
}
