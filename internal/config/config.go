// internal/config/config.go
package config

import (
	"log"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Cache    CacheConfig
	Planning PlanningConfig
	Storage  StorageConfig
	Ingest   IngestConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type AppConfig struct {
	DataDir     string
	RegistryDir string
	ExportDir   string
}

type CacheConfig struct {
	Enabled             bool
	RedisURL            string
	RedisHost           string
	RedisPort           string
	RedisPassword       string
	RedisDB             int
	DashboardTTLSeconds int
	AnalysisTTLSeconds  int
}

// PlanningConfig carries the tunable knobs of the demand and replenishment
// engines. Everything here has a sensible default; env vars override.
type PlanningConfig struct {
	ServiceLevel         float64
	HistoryDays          int
	HoldingCostRate      float64
	OrderingCost         float64
	ChannelSafetyReserve float64

	// stockout detection / substitution inference
	MinStockoutDays       int
	SalesGapFactor        float64
	SubstitutionThreshold float64

	// lead time components (days)
	OrderProcessingDays     int
	CustomsClearanceDays    int
	ReceivingDays           int
	BufferDays              int
	DefaultSupplierLeadDays int
	SeaFreightDays          int
	RailFreightDays         int
	AirFreightDays          int

	// Chinese New Year coverage
	CNYSafetyMultiplier float64

	// container packing
	MinFillPercent       float64
	MaxContainers        int
	UsableVolumeFraction float64
}

type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
}

type IngestConfig struct {
	Port                string
	CredentialsFile     string
	DriveFolderID       string
	PollIntervalSeconds int
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		// Set default values
		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "procura")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("APP_DATA_DIR", "./data/output")
		viper.SetDefault("APP_REGISTRY_DIR", "./data/registry")
		viper.SetDefault("APP_EXPORT_DIR", "./data/exports")
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_DASHBOARD_TTL_SECONDS", 60)
		viper.SetDefault("CACHE_ANALYSIS_TTL_SECONDS", 300)

		viper.SetDefault("PLAN_SERVICE_LEVEL", 0.95)
		viper.SetDefault("PLAN_HISTORY_DAYS", 90)
		viper.SetDefault("PLAN_HOLDING_COST_RATE", 0.25)
		viper.SetDefault("PLAN_ORDERING_COST", 150.0)
		viper.SetDefault("PLAN_CHANNEL_SAFETY_RESERVE", 10.0)
		viper.SetDefault("PLAN_MIN_STOCKOUT_DAYS", 3)
		viper.SetDefault("PLAN_SALES_GAP_FACTOR", 3.0)
		viper.SetDefault("PLAN_SUBSTITUTION_THRESHOLD", 0.10)
		viper.SetDefault("PLAN_ORDER_PROCESSING_DAYS", 3)
		viper.SetDefault("PLAN_CUSTOMS_CLEARANCE_DAYS", 5)
		viper.SetDefault("PLAN_RECEIVING_DAYS", 2)
		viper.SetDefault("PLAN_BUFFER_DAYS", 5)
		viper.SetDefault("PLAN_DEFAULT_SUPPLIER_LEAD_DAYS", 30)
		viper.SetDefault("PLAN_SEA_FREIGHT_DAYS", 35)
		viper.SetDefault("PLAN_RAIL_FREIGHT_DAYS", 20)
		viper.SetDefault("PLAN_AIR_FREIGHT_DAYS", 7)
		viper.SetDefault("PLAN_CNY_SAFETY_MULTIPLIER", 1.3)
		viper.SetDefault("PACK_MIN_FILL_PERCENT", 0.5)
		viper.SetDefault("PACK_MAX_CONTAINERS", 5)
		viper.SetDefault("PACK_USABLE_VOLUME_FRACTION", 0.85)

		viper.SetDefault("STORAGE_ENABLED", false)
		viper.SetDefault("STORAGE_ENDPOINT", "")
		viper.SetDefault("STORAGE_ACCESS_KEY", "")
		viper.SetDefault("STORAGE_SECRET_KEY", "")
		viper.SetDefault("STORAGE_BUCKET", "procura-exports")
		viper.SetDefault("STORAGE_USE_SSL", true)
		viper.SetDefault("STORAGE_REGION", "")

		viper.SetDefault("INGEST_PORT", "8081")
		viper.SetDefault("DRIVE_CREDENTIALS_FILE", "")
		viper.SetDefault("DRIVE_FOLDER_ID", "")
		viper.SetDefault("DRIVE_POLL_INTERVAL_SECONDS", 300)

		// Read from environment variables
		viper.AutomaticEnv()

		// Ensure output directories exist
		ensureDir(viper.GetString("APP_DATA_DIR"))
		ensureDir(viper.GetString("APP_EXPORT_DIR"))

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			App: AppConfig{
				DataDir:     viper.GetString("APP_DATA_DIR"),
				RegistryDir: viper.GetString("APP_REGISTRY_DIR"),
				ExportDir:   viper.GetString("APP_EXPORT_DIR"),
			},
			Cache: CacheConfig{
				Enabled:             viper.GetBool("CACHE_ENABLED"),
				RedisURL:            viper.GetString("REDIS_URL"),
				RedisHost:           viper.GetString("REDIS_HOST"),
				RedisPort:           viper.GetString("REDIS_PORT"),
				RedisPassword:       viper.GetString("REDIS_PASSWORD"),
				RedisDB:             viper.GetInt("REDIS_DB"),
				DashboardTTLSeconds: viper.GetInt("CACHE_DASHBOARD_TTL_SECONDS"),
				AnalysisTTLSeconds:  viper.GetInt("CACHE_ANALYSIS_TTL_SECONDS"),
			},
			Planning: PlanningConfig{
				ServiceLevel:            viper.GetFloat64("PLAN_SERVICE_LEVEL"),
				HistoryDays:             viper.GetInt("PLAN_HISTORY_DAYS"),
				HoldingCostRate:         viper.GetFloat64("PLAN_HOLDING_COST_RATE"),
				OrderingCost:            viper.GetFloat64("PLAN_ORDERING_COST"),
				ChannelSafetyReserve:    viper.GetFloat64("PLAN_CHANNEL_SAFETY_RESERVE"),
				MinStockoutDays:         viper.GetInt("PLAN_MIN_STOCKOUT_DAYS"),
				SalesGapFactor:          viper.GetFloat64("PLAN_SALES_GAP_FACTOR"),
				SubstitutionThreshold:   viper.GetFloat64("PLAN_SUBSTITUTION_THRESHOLD"),
				OrderProcessingDays:     viper.GetInt("PLAN_ORDER_PROCESSING_DAYS"),
				CustomsClearanceDays:    viper.GetInt("PLAN_CUSTOMS_CLEARANCE_DAYS"),
				ReceivingDays:           viper.GetInt("PLAN_RECEIVING_DAYS"),
				BufferDays:              viper.GetInt("PLAN_BUFFER_DAYS"),
				DefaultSupplierLeadDays: viper.GetInt("PLAN_DEFAULT_SUPPLIER_LEAD_DAYS"),
				SeaFreightDays:          viper.GetInt("PLAN_SEA_FREIGHT_DAYS"),
				RailFreightDays:         viper.GetInt("PLAN_RAIL_FREIGHT_DAYS"),
				AirFreightDays:          viper.GetInt("PLAN_AIR_FREIGHT_DAYS"),
				CNYSafetyMultiplier:     viper.GetFloat64("PLAN_CNY_SAFETY_MULTIPLIER"),
				MinFillPercent:          viper.GetFloat64("PACK_MIN_FILL_PERCENT"),
				MaxContainers:           viper.GetInt("PACK_MAX_CONTAINERS"),
				UsableVolumeFraction:    viper.GetFloat64("PACK_USABLE_VOLUME_FRACTION"),
			},
			Storage: StorageConfig{
				Enabled:   viper.GetBool("STORAGE_ENABLED"),
				Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
				AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
				SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
				Bucket:    viper.GetString("STORAGE_BUCKET"),
				UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
				Region:    viper.GetString("STORAGE_REGION"),
			},
			Ingest: IngestConfig{
				Port:                viper.GetString("INGEST_PORT"),
				CredentialsFile:     viper.GetString("DRIVE_CREDENTIALS_FILE"),
				DriveFolderID:       viper.GetString("DRIVE_FOLDER_ID"),
				PollIntervalSeconds: viper.GetInt("DRIVE_POLL_INTERVAL_SECONDS"),
			},
		}
	})

	return instance
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
