package snowflake

import (
	"database/sql"
	"fmt"

	sf "github.com/snowflakedb/gosnowflake"
	"github.com/spf13/viper"
)

// LoadConfig loads connection settings from the given profile file.
func LoadConfig(profilePath string) (*sf.Config, error) {
	v := viper.New()
	v.SetConfigFile(profilePath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config sf.Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse snowflake config: %w", err)
	}
	return &config, nil
}

// OpenDB connects using the gosnowflake driver.
func OpenDB(cfg *sf.Config) (*sql.DB, error) {
	dsn, err := sf.DSN(cfg)
	if err != nil {
		return nil, fmt.Errorf("build snowflake dsn: %w", err)
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to snowflake: %w", err)
	}
	return db, nil
}
