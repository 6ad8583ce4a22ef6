package config

import "time"

// PoolSettings is the resolved, typed view of spec §6's recognised keys,
// with their defaults applied. It is immutable once built: per spec §4.3
// the Pool's tuning parameters are fixed at construction.
type PoolSettings struct {
	Host           string
	Port           int
	Username       string
	Password       string
	DBName         string
	InitSize       int
	MaxSize        int
	MaxIdleTime    time.Duration
	AcquireTimeout time.Duration
}

// NewPoolSettings resolves spec §6's key table against cfg, applying the
// documented defaults for any key that is absent or fails coercion.
func NewPoolSettings(cfg Config) PoolSettings {
	return PoolSettings{
		Host:           cfg.GetString("ip", "localhost"),
		Port:           cfg.GetInt("port", 3306),
		Username:       cfg.GetString("username", "root"),
		Password:       cfg.GetString("password", ""),
		DBName:         cfg.GetString("dbname", "test"),
		InitSize:       cfg.GetInt("initSize", 5),
		MaxSize:        cfg.GetInt("maxSize", 10),
		MaxIdleTime:    time.Duration(cfg.GetInt("maxIdleTime", 60)) * time.Second,
		AcquireTimeout: time.Duration(cfg.GetInt("connectionTimeOut", 100)) * time.Millisecond,
	}
}

// DefaultConfigPath is the config file pool.Instance loads and the default
// of mysqlpoold's -config flag (spec §6). Load itself always takes a path.
const DefaultConfigPath = "db_config.ini"
