package config

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/lcu1903/ProjectThoiTrang/internal/models"
	"github.com/lcu1903/ProjectThoiTrang/internal/service/vnpay"
)

type Config struct {
	DatabaseURL string
	ServerPort  string
	LogLevel    string

	JWTSecret     []byte
	RefreshSecret []byte

	KafkaAddress string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	VNPay vnpay.Config
}

func must(v, name string) string {
	if v == "" {
		log.Fatalf("missing required env %s", name)
	}
	return v
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func Load() *Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	return &Config{
		DatabaseURL: must(os.Getenv("DATABASE_URL"), "DATABASE_URL"),
		ServerPort:  envDefault("SERVER_PORT", "8080"),
		LogLevel:    envDefault("LOG_LEVEL", "info"),

		JWTSecret:     []byte(must(os.Getenv("JWT_SECRET"), "JWT_SECRET")),
		RefreshSecret: []byte(must(os.Getenv("REFRESH_SECRET"), "REFRESH_SECRET")),

		KafkaAddress: must(os.Getenv("KAFKA_ADDRESS"), "KAFKA_ADDRESS"),

		ESURL:      must(os.Getenv("ES_URL"), "ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    envDefault("ES_INDEX", "products"),

		// Validated by vnpay.New at startup.
		VNPay: vnpay.Config{
			Version:    os.Getenv("VNPAY_VERSION"),
			Command:    os.Getenv("VNPAY_COMMAND"),
			TmnCode:    os.Getenv("VNPAY_TMN_CODE"),
			CurrCode:   os.Getenv("VNPAY_CURR_CODE"),
			Locale:     os.Getenv("VNPAY_LOCALE"),
			ReturnURL:  os.Getenv("VNPAY_RETURN_URL"),
			BaseURL:    os.Getenv("VNPAY_BASE_URL"),
			HashSecret: os.Getenv("VNPAY_HASH_SECRET"),
		},
	}
}

func configurePool(sqlDB *sql.DB) {
	const (
		maxOpenConns    = 20
		maxIdleConns    = 10
		connMaxLifetime = 30 * time.Minute
		connMaxIdleTime = 5 * time.Minute
	)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
}

func InitDB(ctx context.Context, dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		PrepareStmt: true,
		NowFunc:     func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db handle: %w", err)
	}
	configurePool(sqlDB)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Category{},
		&models.Product{},
		&models.Customer{},
		&models.Cart{},
		&models.CartDetail{},
		&models.RefreshToken{},
	); err != nil {
		return nil, fmt.Errorf("db migrate: %w", err)
	}

	return db, nil
}
