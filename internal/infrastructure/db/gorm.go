package db

import (
	"fmt"
	"strings"
	"time"

	"loan-ledger/internal/config"
	"loan-ledger/internal/domain/borrower"
	"loan-ledger/internal/domain/loan"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func gormLogLevel(s string) logger.LogLevel {
	switch strings.ToLower(s) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// OpenGorm picks the dialector from cfg.Driver and opens a pooled connection.
func OpenGorm(cfg *config.Config) (*gorm.DB, error) {
	var dial gorm.Dialector
	switch cfg.Database.Driver {
	case config.DriverMySQL:
		dial = mysql.Open(cfg.MySQLDSN())
	case config.DriverSQLite:
		dial = sqlite.Open(cfg.Database.SQLitePath)
	default:
		return nil, fmt.Errorf("db: unsupported driver %q", cfg.Database.Driver)
	}

	gdb, err := OpenGormWithDialector(dial, gormLogLevel(cfg.Database.LogLevel))
	if err != nil {
		return nil, err
	}
	if cfg.Database.Driver == config.DriverSQLite {
		if err := singleConn(gdb); err != nil {
			return nil, err
		}
	}
	return gdb, nil
}

// singleConn pins the pool to one connection. sqlite serializes writers.
func singleConn(gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("db: sql handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return nil
}

// OpenGormWithDialector opens gorm over any dialector, tunes the pool and pings.
func OpenGormWithDialector(dial gorm.Dialector, level ...logger.LogLevel) (*gorm.DB, error) {
	lvl := logger.Warn
	if len(level) > 0 {
		lvl = level[0]
	}
	gdb, err := gorm.Open(dial, &gorm.Config{
		Logger:               logger.Default.LogMode(lvl),
		NowFunc:              func() time.Time { return time.Now().UTC() },
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(30)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	return gdb, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&loan.Loan{},
		&loan.Repayment{},
		&borrower.Borrower{},
		&borrower.LoanRequest{},
		&borrower.AuditLog{},
	)
}
