// server/config/config.go
package config

import (
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// --- Các struct con, phản ánh cấu trúc của YAML ---

type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Env            string   `mapstructure:"env"`
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

type MongoConfig struct {
	URI    string `mapstructure:"uri"`
	DBName string `mapstructure:"dbName"`
}

type JWTConfig struct {
	Secret     string `mapstructure:"secret"`
	Expiration string `mapstructure:"expiration"`
}

type S3Config struct {
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	AccessKeyID      string `mapstructure:"accessKeyID"`
	SecretAccessKey  string `mapstructure:"secretAccessKey"`
	CloudFrontDomain string `mapstructure:"cloudFrontDomain"`
}

// GeminiConfig cấu hình client gọi Gemini generateContent.
type GeminiConfig struct {
	APIKey            string        `mapstructure:"apiKey"`
	BaseURL           string        `mapstructure:"baseURL"`
	Model             string        `mapstructure:"model"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RetryMax          int           `mapstructure:"retryMax"`
	RequestsPerSecond int           `mapstructure:"requestsPerSecond"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type WorkflowConfig struct {
	CompanyName    string        `mapstructure:"companyName"`
	ExpireAfter    time.Duration `mapstructure:"expireAfter"`
	ExpireSweep    time.Duration `mapstructure:"expireSweep"`
	AuditQueueSize int           `mapstructure:"auditQueueSize"`
}

type InventoryConfig struct {
	MirrorDebounce        time.Duration `mapstructure:"mirrorDebounce"`
	ConsumptionWindowDays int           `mapstructure:"consumptionWindowDays"`
}

type NegotiationConfig struct {
	CacheTTL     time.Duration `mapstructure:"cacheTTL"`
	HistoryLimit int           `mapstructure:"historyLimit"`
	MinSamples   int           `mapstructure:"minSamples"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type AdminConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// --- Struct Config chính, bao gồm tất cả các struct con ---

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Mongo       MongoConfig       `mapstructure:"mongo"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	S3          S3Config          `mapstructure:"s3"`
	Gemini      GeminiConfig      `mapstructure:"gemini"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Workflow    WorkflowConfig    `mapstructure:"workflow"`
	Inventory   InventoryConfig   `mapstructure:"inventory"`
	Negotiation NegotiationConfig `mapstructure:"negotiation"`
	Log         LogConfig         `mapstructure:"log"`
	Admin       AdminConfig       `mapstructure:"admin"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "dev")
	v.SetDefault("server.allowedOrigins", []string{"http://localhost:5173"})
	v.SetDefault("mongo.dbName", "pizzeria_backoffice")
	v.SetDefault("jwt.expiration", "24h")
	v.SetDefault("gemini.baseURL", "https://generativelanguage.googleapis.com")
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("gemini.timeout", 30*time.Second)
	v.SetDefault("gemini.retryMax", 2)
	v.SetDefault("gemini.requestsPerSecond", 2)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("workflow.companyName", "Pizzeria")
	v.SetDefault("workflow.expireAfter", 14*24*time.Hour)
	v.SetDefault("workflow.expireSweep", time.Hour)
	v.SetDefault("workflow.auditQueueSize", 256)
	v.SetDefault("inventory.mirrorDebounce", 1500*time.Millisecond)
	v.SetDefault("inventory.consumptionWindowDays", 30)
	v.SetDefault("negotiation.cacheTTL", 10*time.Minute)
	v.SetDefault("negotiation.historyLimit", 50)
	v.SetDefault("negotiation.minSamples", 3)
	v.SetDefault("log.level", "info")
}

// LoadConfig đọc cấu hình từ file và ghi đè bằng các biến môi trường.
func LoadConfig(path string) (config Config, err error) {
	// .env là tùy chọn, bỏ qua nếu không có
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	setDefaults(v)

	v.AutomaticEnv()

	// Ví dụ: key "mongo.uri" trong YAML sẽ được ánh xạ tới biến môi trường "MONGO_URI"
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.env", "APP_ENV")
	v.BindEnv("mongo.uri", "MONGO_URI")
	v.BindEnv("mongo.dbName", "MONGO_DBNAME")
	v.BindEnv("jwt.secret", "JWT_SECRET")
	v.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	v.BindEnv("s3.bucket", "S3_BUCKET")
	v.BindEnv("s3.region", "S3_REGION")
	v.BindEnv("s3.accessKeyID", "S3_ACCESS_KEY_ID")
	v.BindEnv("s3.secretAccessKey", "S3_SECRET_ACCESS_KEY")
	v.BindEnv("s3.cloudFrontDomain", "S3_CLOUDFRONT_DOMAIN")
	v.BindEnv("gemini.apiKey", "GEMINI_API_KEY")
	v.BindEnv("gemini.model", "GEMINI_MODEL")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("admin.email", "ADMIN_EMAIL")
	v.BindEnv("admin.password", "ADMIN_PASSWORD")

	// Nếu file không tồn tại, Viper sẽ chỉ sử dụng các biến môi trường.
	err = v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}

// TokenTTL trả về thời hạn JWT, mặc định 24h nếu cấu hình sai.
func (c JWTConfig) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.Expiration)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}
