package configuration

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"blog-publisher/infrastructure/logger"
	"blog-publisher/infrastructure/retry"

	"github.com/spf13/viper"
)

type Config struct {
	Database     Database     `json:"database"`
	App          App          `json:"app"`
	Pubsub       Pubsub       `json:"pubsub"`
	ServiceBus   ServiceBus   `json:"serviceBus"`
	RedisClient  RedisClient  `json:"redisClient"`
	Logger       Logger       `json:"logger"`
	Publisher    Publisher    `json:"publisher"`
	Platforms    Platforms    `json:"platforms"`
	Notification Notification `json:"notification"`
	Security     Security     `json:"security"`
}

type App struct {
	Port        int      `json:"port"`
	SecretKey   string   `json:"secretKey"`
	TLSEnabled  bool     `json:"tlsEnabled"`
	TLSCertFile string   `json:"tlsCertFile"`
	TLSKeyFile  string   `json:"tlsKeyFile"`
	Origins     []string `json:"origins"`

	// ConnectRedirect is where the browser lands after an OAuth connect.
	ConnectRedirect string `json:"connectRedirect"`
}

type Database struct {
	Vendor string `json:"vendor"`
	Psql   Db     `json:"psql"`
	MySql  Db     `json:"mysql"`
	Mongo  Db     `json:"mongo"`
	Mssql  Db     `json:"mssql"`
}

type Db struct {
	Name     string `json:"string"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type Pubsub struct {
	ProjectID string `json:"projectID"`
}

type ServiceBus struct {
	Namespace string `json:"namespace"`
}

type RedisClient struct {
	Host         string `json:"host"`
	Port         string `json:"port"`
	Password     string `json:"password"`
	DatabaseName string `json:"databaseName"`
	Username     string `json:"username"`
}

type Logger struct {
	Format string `json:"format"`
	Level  string `json:"level"`
}

// Publisher tunes retries, the sweep and quota accounting.
type Publisher struct {
	MaxRetries          int            `json:"maxRetries"`
	BaseDelayMs         int            `json:"baseDelayMs"`
	MaxDelayMs          int            `json:"maxDelayMs"`
	HTTPTimeoutSec      int            `json:"httpTimeoutSec"`
	BatchSize           int            `json:"batchSize"`
	SweepIntervalSec    int            `json:"sweepIntervalSec"`
	SweepConcurrency    int            `json:"sweepConcurrency"`
	SweepLockTTLSec     int            `json:"sweepLockTTLSec"`
	QuotaThreshold      float64        `json:"quotaThreshold"`
	DefaultMonthlyLimit int            `json:"defaultMonthlyLimit"`
	CircuitBreaker      CircuitBreaker `json:"circuitBreaker"`
}

type CircuitBreaker struct {
	Enabled          bool `json:"enabled"`
	FailureThreshold uint `json:"failureThreshold"`
	MinRequests      uint `json:"minRequests"`
	OpenSeconds      int  `json:"openSeconds"`
}

type Platforms struct {
	Tistory   PlatformEndpoint `json:"tistory"`
	Blogger   OAuthClient      `json:"blogger"`
	WordPress PlatformEndpoint `json:"wordpress"`
}

type PlatformEndpoint struct {
	BaseURL string `json:"baseURL"`
}

// OAuthClient holds third-party platform OAuth client credentials
type OAuthClient struct {
	BaseURL      string   `json:"baseURL"`
	ClientID     string   `json:"clientId"`
	ClientSecret string   `json:"clientSecret"`
	RedirectURI  string   `json:"redirectURI"`
	AuthURL      string   `json:"authURL"`
	TokenURL     string   `json:"tokenURL"`
	Scopes       []string `json:"scopes"`
}

type Notification struct {
	Webhook    WebhookSink `json:"webhook"`
	Pubsub     TopicSink   `json:"pubsub"`
	ServiceBus TopicSink   `json:"serviceBus"`
	SQS        SQSSink     `json:"sqs"`
	Kafka      KafkaSink   `json:"kafka"`
	Audit      AuditSink   `json:"audit"`
}

type WebhookSink struct {
	URL    string `json:"url"`
	Secret string `json:"secret"`
}

type TopicSink struct {
	Topic string `json:"topic"`
}

type SQSSink struct {
	Region   string `json:"region"`
	QueueURL string `json:"queueURL"`
}

type KafkaSink struct {
	Brokers []string `json:"brokers"`
	Topic   string   `json:"topic"`
}

type AuditSink struct {
	Database   string `json:"database"`
	Collection string `json:"collection"`
}

type Security struct {
	EncryptionKey string `json:"encryptionKey"`
}

var C Config

func init() {
	Reload()
}

// Reload re-reads the config file and environment, e.g. after env files were
// loaded.
func Reload() {
	LoadConfig()
	initDatabase(&C)
	initApp(&C)
	initPublisher(&C)
	initPlatforms(&C)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initDatabase(C *Config) {
	if v := os.Getenv("DB_VENDOR"); v != "" {
		C.Database.Vendor = v
	}
	if C.Database.Vendor == "" {
		C.Database.Vendor = "postgres"
	}
	C.Database.Vendor = strings.ToLower(C.Database.Vendor)

	if C.Database.Psql.Name == "" {
		C.Database.Psql.Name = os.Getenv("DB_NAME")
	}
	if C.Database.Psql.Host == "" {
		C.Database.Psql.Host = os.Getenv("DB_HOST")
	}
	if C.Database.Psql.User == "" {
		C.Database.Psql.User = os.Getenv("DB_USER")
	}
	if C.Database.Psql.Password == "" {
		C.Database.Psql.Password = os.Getenv("DB_PASSWORD")
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = getEnv("DB_PORT", "5432")
	}

	if C.Database.MySql.Host == "" {
		C.Database.MySql.Host = os.Getenv("MYSQL_HOST")
	}
	if C.Database.MySql.Port == "" {
		C.Database.MySql.Port = getEnv("MYSQL_PORT", "3306")
	}
	if C.Database.MySql.User == "" {
		C.Database.MySql.User = os.Getenv("MYSQL_USER")
	}
	if C.Database.MySql.Password == "" {
		C.Database.MySql.Password = os.Getenv("MYSQL_PASSWORD")
	}
	if C.Database.MySql.Name == "" {
		C.Database.MySql.Name = os.Getenv("MYSQL_DB_NAME")
	}

	// Optional MSSQL config via environment variables (Azure SQL in production)
	if C.Database.Mssql.Name == "" {
		C.Database.Mssql.Name = os.Getenv("MSSQL_DB_NAME")
	}
	if C.Database.Mssql.Host == "" {
		C.Database.Mssql.Host = getEnv("MSSQL_HOST", "localhost")
	}
	if C.Database.Mssql.Password == "" {
		C.Database.Mssql.Password = os.Getenv("MSSQL_PASSWORD")
	}
	if C.Database.Mssql.Port == "" {
		C.Database.Mssql.Port = getEnv("MSSQL_PORT", "1433")
	}
	if C.Database.Mssql.User == "" {
		C.Database.Mssql.User = getEnv("MSSQL_USER", "sa")
	}

	if C.Database.Mongo.Host == "" {
		C.Database.Mongo.Host = os.Getenv("MONGO_HOST")
	}
	if C.Database.Mongo.Port == "" {
		C.Database.Mongo.Port = getEnv("MONGO_PORT", "27017")
	}
}

func initApp(C *Config) {
	// SECRET_KEY overrides the config file for JWT verification
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// Port resolution order (env overrides config): APP_PORT -> PORT -> config -> default 10001
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10001
	}
	if v := os.Getenv("TLS_ENABLED"); v != "" {
		switch v {
		case "1", "true", "TRUE", "True":
			C.App.TLSEnabled = true
		case "0", "false", "FALSE", "False":
			C.App.TLSEnabled = false
		}
	}
	if C.App.TLSCertFile == "" {
		C.App.TLSCertFile = os.Getenv("TLS_CERT_FILE")
	}
	if C.App.TLSKeyFile == "" {
		C.App.TLSKeyFile = os.Getenv("TLS_KEY_FILE")
	}
	C.App.ConnectRedirect = getConfigValue(C.App.ConnectRedirect, "CONNECT_REDIRECT_URL", "")
	if len(C.App.Origins) == 0 {
		C.App.Origins = []string{"http://localhost:4200", "http://localhost:4201"}
	}
	if v := os.Getenv("ENCRYPTION_KEY"); v != "" {
		C.Security.EncryptionKey = v
	}
	if C.Security.EncryptionKey == "" {
		logger.GetLogger().Warn("Security.EncryptionKey not set; falling back to App.SecretKey for credential encryption")
		C.Security.EncryptionKey = C.App.SecretKey
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; JWT authentication will fail. Provide SECRET_KEY via environment.")
	}
}

func initPublisher(C *Config) {
	p := &C.Publisher
	if v := os.Getenv("PUBLISH_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.MaxRetries = n
		}
	}
	if p.MaxRetries == 0 {
		p.MaxRetries = retry.DefaultMaxRetries
	}
	if p.BaseDelayMs == 0 {
		p.BaseDelayMs = int(retry.DefaultBaseDelay / time.Millisecond)
	}
	if p.MaxDelayMs == 0 {
		p.MaxDelayMs = int(retry.DefaultMaxDelay / time.Millisecond)
	}
	if p.HTTPTimeoutSec == 0 {
		p.HTTPTimeoutSec = 30
	}
	if p.BatchSize == 0 {
		p.BatchSize = 10
	}
	if p.SweepIntervalSec == 0 {
		p.SweepIntervalSec = 60
	}
	if p.SweepConcurrency == 0 {
		p.SweepConcurrency = 1
	}
	if p.SweepLockTTLSec == 0 {
		p.SweepLockTTLSec = 300
	}
	if p.QuotaThreshold == 0 {
		p.QuotaThreshold = 0.8
	}
	if p.DefaultMonthlyLimit == 0 {
		p.DefaultMonthlyLimit = 30
	}
	if p.CircuitBreaker.FailureThreshold == 0 {
		p.CircuitBreaker.FailureThreshold = 5
	}
	if p.CircuitBreaker.MinRequests == 0 {
		p.CircuitBreaker.MinRequests = 10
	}
	if p.CircuitBreaker.OpenSeconds == 0 {
		p.CircuitBreaker.OpenSeconds = 30
	}
}

func initPlatforms(C *Config) {
	scheme := "http"
	if C.App.TLSEnabled {
		scheme = "https"
	}
	b := &C.Platforms.Blogger
	b.ClientID = getConfigValue(b.ClientID, "BLOGGER_CLIENT_ID", "")
	b.ClientSecret = getConfigValue(b.ClientSecret, "BLOGGER_CLIENT_SECRET", "")
	b.RedirectURI = getConfigValue(b.RedirectURI, "BLOGGER_REDIRECT_URL", fmt.Sprintf("%s://localhost:%d/auth/blogger/callback", scheme, C.App.Port))
	if len(b.Scopes) == 0 {
		b.Scopes = []string{"https://www.googleapis.com/auth/blogger"}
	}
	if C.Platforms.Tistory.BaseURL == "" {
		C.Platforms.Tistory.BaseURL = "https://www.tistory.com"
	}
}

// RetryConfig is the adapter retry policy derived from Publisher settings.
func (p Publisher) RetryConfig() retry.Config {
	return retry.Config{
		MaxRetries: p.MaxRetries,
		BaseDelay:  time.Duration(p.BaseDelayMs) * time.Millisecond,
		MaxDelay:   time.Duration(p.MaxDelayMs) * time.Millisecond,
	}.Normalize()
}

func (p Publisher) HTTPTimeout() time.Duration {
	return time.Duration(p.HTTPTimeoutSec) * time.Second
}

// getConfigValue gets value from environment first, then config, then default
func getConfigValue(configValue, envKey, defaultValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if configValue != "" && !strings.HasPrefix(configValue, "YOUR_") {
		return configValue
	}
	return defaultValue
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
