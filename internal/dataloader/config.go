package dataloader

import (
	"fmt"
	"strings"

	goenv "github.com/Netflix/go-env"
	"github.com/pkg/errors"
)

// Config is read from the Lambda environment.
type Config struct {
	Database          string `env:"DATABASE,required=true"`
	User              string `env:"USER_NAME,required=true"`
	Password          string `env:"PASSWORD"`
	PasswordParameter string `env:"PASSWORD_PARAMETER"`
	Host              string `env:"HOST,required=true"`
	Port              int    `env:"PORT,default=5439"`
	SSLMode           string `env:"SSL_MODE,default=require"`
	CommitMode        string `env:"COMMIT_MODE,default=batch"`
	TableSuffixMode   string `env:"TABLE_SUFFIX_MODE,default=first"`
	PropagateErrors   bool   `env:"PROPAGATE_ERRORS,default=false"`
}

// LoadConfig decodes and validates es.
func LoadConfig(es goenv.EnvSet) (Config, error) {
	var cfg Config
	if err := goenv.Unmarshal(es, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "reading environment")
	}
	if cfg.Password == "" && cfg.PasswordParameter == "" {
		return Config{}, errors.New("one of PASSWORD or PASSWORD_PARAMETER must be set")
	}
	if _, err := ParseCommitMode(cfg.CommitMode); err != nil {
		return Config{}, err
	}
	if _, err := ParseSuffixMode(cfg.TableSuffixMode); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DSN renders a lib/pq key/value connection string.
func (c Config) DSN(password string) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dsnValue(c.Host),
		c.Port,
		dsnValue(c.User),
		dsnValue(password),
		dsnValue(c.Database),
		dsnValue(c.SSLMode))
}

func dsnValue(v string) string {
	v = strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v)
	return "'" + v + "'"
}
