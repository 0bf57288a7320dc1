package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string
	GinMode    string

	// StoreDriver 為 "mysql"、"sqlite" 或 "memory"
	StoreDriver string
	SQLitePath  string
	DBHost      string
	DBPort      int
	DBUser      string
	DBPassword  string
	DBName      string

	JWTSecret          string
	JWTExpirationHours time.Duration

	AdminUsername string
	AdminEmail    string
	AdminPassword string

	AuditSchedule        string
	CheckInRatePerMinute int
}

// Load 載入 .env 後讀取環境變數
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env file: %v", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "3306"))
	if err != nil {
		log.Printf("Invalid DB_PORT, falling back to 3306: %v", err)
		dbPort = 3306
	}
	jwtExpHours, err := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	if err != nil {
		log.Printf("Invalid JWT_EXPIRATION_HOURS, falling back to 24: %v", err)
		jwtExpHours = 24
	}
	checkInRate, err := strconv.Atoi(getEnv("CHECKIN_RATE_PER_MINUTE", "30"))
	if err != nil {
		log.Printf("Invalid CHECKIN_RATE_PER_MINUTE, falling back to 30: %v", err)
		checkInRate = 30
	}

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		GinMode:    getEnv("GIN_MODE", "release"),

		StoreDriver: getEnv("STORE_DRIVER", "mysql"),
		SQLitePath:  getEnv("SQLITE_PATH", "parking.db"),
		DBHost:      getEnv("DB_HOST", "127.0.0.1"),
		DBPort:      dbPort,
		DBUser:      getEnv("DB_USER", "parking_user"),
		DBPassword:  getEnv("DB_PASSWORD", ""),
		DBName:      getEnv("DB_NAME", "parking_db"),

		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTExpirationHours: time.Duration(jwtExpHours) * time.Hour,

		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@example.com"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		AuditSchedule:        getEnv("AUDIT_SCHEDULE", "*/5 * * * *"),
		CheckInRatePerMinute: checkInRate,
	}
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
