package config

import (
	"fmt"
	"time"
)

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
	Debug      bool   `mapstructure:"debug"`
}

type EmailConfig struct {
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUser     string `mapstructure:"smtp_user"`
	SMTPPassword string `mapstructure:"smtp_password"`
	FromAddress  string `mapstructure:"from_address"`
	FromName     string `mapstructure:"from_name"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ResyncConfig controls the reconciliation worker schedule.
type ResyncConfig struct {
	IntervalHours    int    `mapstructure:"interval_hours"`
	ExpiryScanMins   int    `mapstructure:"expiry_scan_minutes"`
	WarningLeadsDays []int  `mapstructure:"warning_leads_days"`
	PortTimeoutSecs  int    `mapstructure:"port_timeout_seconds"`
	Timezone         string `mapstructure:"timezone"`
}

func (r *ResyncConfig) Interval() time.Duration {
	if r.IntervalHours <= 0 {
		return 12 * time.Hour
	}
	return time.Duration(r.IntervalHours) * time.Hour
}

func (r *ResyncConfig) ExpiryScanInterval() time.Duration {
	if r.ExpiryScanMins <= 0 {
		return time.Hour
	}
	return time.Duration(r.ExpiryScanMins) * time.Minute
}

func (r *ResyncConfig) PortTimeout() time.Duration {
	if r.PortTimeoutSecs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(r.PortTimeoutSecs) * time.Second
}
