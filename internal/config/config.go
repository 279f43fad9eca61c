package config

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"

	ScopeOwn = "own"
	ScopeAny = "any"
)

type Config struct {
	App         AppConfig         `yaml:"app"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Auth        AuthConfig        `yaml:"auth"`
	Workflow    WorkflowConfig    `yaml:"workflow"`
	Idempotency IdempotencyConfig `yaml:"idempotency"`
	Cache       CacheConfig       `yaml:"cache"`
	Log         LogConfig         `yaml:"log"`
}

type AppConfig struct {
	Port               string        `yaml:"port"                  env:"APP_PORT"              env-default:"8080"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute" env:"RATE_LIMIT_PER_MINUTE" env-default:"100"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"      env:"SHUTDOWN_TIMEOUT"      env-default:"10s"`
	CORSOrigins        []string      `yaml:"cors_origins"          env:"CORS_ORIGINS"          env-default:"*"`
}

type DatabaseConfig struct {
	Driver      string `yaml:"driver"       env:"DB_DRIVER"       env-default:"mysql"`
	SQLitePath  string `yaml:"sqlite_path"  env:"DB_SQLITE_PATH"  env-default:"loan-ledger.db"`
	MySQLHost   string `yaml:"mysql_host"   env:"MYSQL_HOST"      env-default:"mysql"`
	MySQLPort   string `yaml:"mysql_port"   env:"MYSQL_PORT"      env-default:"3306"`
	MySQLDB     string `yaml:"mysql_db"     env:"MYSQL_DB"        env-default:"loanledger"`
	MySQLUser   string `yaml:"mysql_user"   env:"MYSQL_USER"      env-default:"loanledger"`
	MySQLPass   string `yaml:"mysql_pass"   env:"MYSQL_PASS"      env-default:"loanledger"`
	AutoMigrate bool   `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE" env-default:"true"`
	LogLevel    string `yaml:"log_level"    env:"DB_LOG_LEVEL"    env-default:"warn"`
}

// RedisConfig: an empty Addr disables idempotency and the query cache.
type RedisConfig struct {
	Addr string `yaml:"addr" env:"REDIS_ADDR" env-default:"redis:6379"`
	DB   int    `yaml:"db"   env:"REDIS_DB"   env-default:"0"`
}

type AuthConfig struct {
	APIKey            string `yaml:"api_key"             env:"API_KEY"`
	AdminEmail        string `yaml:"admin_email"         env:"ADMIN_EMAIL"         env-default:"admin@example.com"`
	AdminPassword     string `yaml:"admin_password"      env:"ADMIN_PASSWORD"`
	BorrowerLoanScope string `yaml:"borrower_loan_scope" env:"BORROWER_LOAN_SCOPE" env-default:"own"`
}

type WorkflowConfig struct {
	MinRequest    float64 `yaml:"min_request"    env:"WORKFLOW_MIN_REQUEST"    env-default:"50"`
	MaxRequest    float64 `yaml:"max_request"    env:"WORKFLOW_MAX_REQUEST"    env-default:"100000"`
	DefaultMarkup float64 `yaml:"default_markup" env:"WORKFLOW_DEFAULT_MARKUP" env-default:"10"`
}

type IdempotencyConfig struct {
	TTL time.Duration `yaml:"ttl" env:"IDEMPOTENCY_TTL" env-default:"300s"`
}

type CacheConfig struct {
	LoansTTL time.Duration `yaml:"loans_ttl" env:"CACHE_LOANS_TTL" env-default:"5s"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

func (c *Config) Validate() error {
	if c.App.Port == "" {
		return errors.New("missing APP_PORT")
	}
	if c.App.RateLimitPerMinute <= 0 {
		return fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE %d", c.App.RateLimitPerMinute)
	}
	switch c.Database.Driver {
	case DriverMySQL:
		if c.Database.MySQLHost == "" || c.Database.MySQLPort == "" || c.Database.MySQLDB == "" || c.Database.MySQLUser == "" {
			return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
		}
		// ensure port is valid
		if _, err := net.LookupPort("tcp", c.Database.MySQLPort); err != nil {
			return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.Database.MySQLPort, err)
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return errors.New("missing DB_SQLITE_PATH")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	switch c.Auth.BorrowerLoanScope {
	case ScopeOwn, ScopeAny:
	default:
		return fmt.Errorf("invalid BORROWER_LOAN_SCOPE %q", c.Auth.BorrowerLoanScope)
	}
	w := c.Workflow
	if w.MinRequest <= 0 || w.MaxRequest < w.MinRequest {
		return fmt.Errorf("invalid request bounds [%v, %v]", w.MinRequest, w.MaxRequest)
	}
	if w.DefaultMarkup < 0 || w.DefaultMarkup > 100 {
		return fmt.Errorf("invalid WORKFLOW_DEFAULT_MARKUP %v", w.DefaultMarkup)
	}
	return nil
}

func (c *Config) mysqlAddr() string {
	return net.JoinHostPort(c.Database.MySQLHost, c.Database.MySQLPort)
}

func (c *Config) MySQLDSN() string {
	// parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&charset=utf8mb4,utf8",
		c.Database.MySQLUser, c.Database.MySQLPass, c.mysqlAddr(), c.Database.MySQLDB)
}

// RedisEnabled reports whether a redis address is configured.
func (c *Config) RedisEnabled() bool { return c.Redis.Addr != "" }

func (w WorkflowConfig) Bounds() (lo, hi decimal.Decimal) {
	return decimal.NewFromFloat(w.MinRequest), decimal.NewFromFloat(w.MaxRequest)
}

func (w WorkflowConfig) Markup() decimal.Decimal { return decimal.NewFromFloat(w.DefaultMarkup) }
