package databrickssql

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/databricks/databricks-sql-go"
	"github.com/databricks/databricks-sdk-go/config"
	"gopkg.in/ini.v1"
)

const DefaultProfile = "DEFAULT"

// LoadConfig reads a profile from ~/.databrickscfg.
func LoadConfig(profile string) (*config.Config, error) {
	if profile == "" {
		profile = DefaultProfile
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("unable to get home directory: %w", err)
	}

	cfg, err := ini.Load(filepath.Join(homeDir, ".databrickscfg"))
	if err != nil {
		return nil, fmt.Errorf("unable to load databricks config file: %w", err)
	}

	section, err := cfg.GetSection(profile)
	if err != nil {
		return nil, fmt.Errorf("profile %s not found in databricks config: %w", profile, err)
	}

	loaded := &config.Config{
		Host:  section.Key("host").String(),
		Token: section.Key("token").String(),
	}
	if loaded.Host == "" || loaded.Token == "" {
		return nil, fmt.Errorf("profile %s is missing host or token", profile)
	}
	return loaded, nil
}

// OpenDB connects to a SQL warehouse using the databricks driver.
func OpenDB(cfg *config.Config, httpPath string) (*sql.DB, error) {
	dsn := fmt.Sprintf("token:%s@%s%s", cfg.Token, cfg.Host, httpPath)

	params := url.Values{}
	params.Set("catalog", "system")
	params.Set("schema", "billing")
	dsn = dsn + "?" + params.Encode()

	db, err := sql.Open("databricks", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to databricks: %w", err)
	}
	return db, nil
}
