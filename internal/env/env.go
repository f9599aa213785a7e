package env

import (
	"os"
	"strconv"
	"time"
)

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func GetInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func GetBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Environment variable keys
const (
	// Server
	EnvHTTPAddr     = "HTTP_ADDR"
	EnvDatabasePath = "DATABASE_PATH"
	EnvDebug        = "DEBUG"

	// Logging
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"

	// Auth
	EnvTokenDuration  = "TOKEN_DURATION"
	EnvRateLimitRPS   = "RATE_LIMIT_RPS"
	EnvRateLimitBurst = "RATE_LIMIT_BURST"

	// Events
	EnvAMQPURL      = "AMQP_URL"
	EnvAMQPExchange = "AMQP_EXCHANGE"

	// Domain
	EnvMenuPublishedMessage = "MENU_PUBLISHED_MESSAGE"
	EnvDefaultPageSize      = "DEFAULT_PAGE_SIZE"
	EnvMaxPageSize          = "MAX_PAGE_SIZE"

	// Bootstrap
	EnvBootstrapAdminEmail    = "BOOTSTRAP_ADMIN_EMAIL"
	EnvBootstrapAdminPassword = "BOOTSTRAP_ADMIN_PASSWORD"
)

// DefaultMenuPublishedMessage is sent to every customer when a menu is set
const DefaultMenuPublishedMessage = "Today's menu has been set! Check it out now."

// Config lists every recognised setting. Zero values are never used; Load
// fills each field from the environment or its default.
type Config struct {
	HTTPAddr     string
	DatabasePath string
	// Debug runs gin in debug mode
	Debug        bool

	LogLevel  string
	LogFormat string

	TokenDuration  time.Duration
	RateLimitRPS   float64
	RateLimitBurst int

	AMQPURL      string
	AMQPExchange string

	MenuPublishedMessage string
	DefaultPageSize      int
	MaxPageSize          int

	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}

// Load reads the configuration from the process environment
func Load() Config {
	return Config{
		HTTPAddr:     GetEnv(EnvHTTPAddr, ":9237"),
		DatabasePath: GetEnv(EnvDatabasePath, "./internal/databases/meals.db"),
		Debug:        GetBool(EnvDebug, false),

		LogLevel:  GetEnv(EnvLogLevel, "info"),
		LogFormat: GetEnv(EnvLogFormat, "json"),

		TokenDuration:  GetDuration(EnvTokenDuration, 7*24*time.Hour),
		RateLimitRPS:   GetFloat(EnvRateLimitRPS, 10),
		RateLimitBurst: GetInt(EnvRateLimitBurst, 20),

		AMQPURL:      GetEnv(EnvAMQPURL, ""),
		AMQPExchange: GetEnv(EnvAMQPExchange, "bookameal.events"),

		MenuPublishedMessage: GetEnv(EnvMenuPublishedMessage, DefaultMenuPublishedMessage),
		DefaultPageSize:      GetInt(EnvDefaultPageSize, 10),
		MaxPageSize:          GetInt(EnvMaxPageSize, 100),

		BootstrapAdminEmail:    GetEnv(EnvBootstrapAdminEmail, ""),
		BootstrapAdminPassword: GetEnv(EnvBootstrapAdminPassword, ""),
	}
}

//   Book-A-Meal API. Backend for caterers publishing daily menus and customers ordering from them.
//   API Copyright (C) 2025 The Book-A-Meal Authors
//       This program is free software: you can redistribute it and/or modify
//       it under the terms of the GNU General Public License as published by
//       the Free Software Foundation, either version 3 of the License, or
//       (at your option) any later version.

//       This program is distributed in the hope that it will be useful,
//       but WITHOUT ANY WARRANTY; without even the implied warranty of
//       MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
//       GNU General Public License for more details.

//       You should have received a copy of the GNU General Public License
//       along with this program.  If not, see <https://www.gnu.org/licenses/>.
