package postgres

import (
	"fmt"
	"time"
)

// Config 定義 PostgreSQL 連線與連線池的配置
type Config struct {
	Host     string `yaml:"host"`     // 資料庫主機地址
	Port     int    `yaml:"port"`     // 資料庫埠號 (預設 5432)
	User     string `yaml:"user"`     // 使用者名稱
	Password string `yaml:"password"` // 密碼
	DBName   string `yaml:"dbname"`   // 資料庫名稱
	SSLMode  string `yaml:"sslmode"`  // 預設 disable

	// 連線池設定 (Connection Pool)
	// 連線池是交給 Ledger 的資源，同時也限制同時在途的變更數量
	MaxOpenConns    int           `yaml:"max_open_conns"`    // 最大開啟連線數
	MaxIdleConns    int           `yaml:"max_idle_conns"`    // 最大閒置連線數
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"` // 連線最大存活時間

	// GORM 設定
	LogLevel string `yaml:"log_level"` // Log 等級: "silent", "error", "warn", "info"
}

// DSN (Data Source Name) 產生 keyword/value 格式的連線字串
// 格式: host=... port=... user=... password=... dbname=... sslmode=...
func (c *Config) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.DBName,
		sslMode,
	)
}
