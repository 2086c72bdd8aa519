package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	S3BucketName   string

	RPCURL          string
	ContractAddress string
	AdminPrivateKey string
	ChainID         int64 // 0 asks the node
	ABIPath         string
	ABICacheTTL     time.Duration
	TxTimeout       time.Duration
	ExplorerTxURL   string

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	AdminUsername      string
	AdminPasswordHash  string
	AdminEmail         string
	DefaultConsumerPIN string

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	SMSProvider      string // "sns" | "twilio" | "none"
	SNSRegion        string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OTLPEndpoint      string
	ReconcileInterval time.Duration
	AllowedOrigins    []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	OTPs              string
	ConsumerSignups   string
	DeliverySignups   string
	ShopkeeperSignups string
	Notifications     string
	Allocations       string
}

var hexAddress = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Load reads all configuration from environment variables and fails when a
// required setting is absent or malformed.
func Load() (*Config, error) {
	cfg := &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", ""),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			OTPs:              getEnv("DYNAMO_TABLE_OTPS", "otps"),
			ConsumerSignups:   getEnv("DYNAMO_TABLE_CONSUMER_SIGNUPS", "consumer_signups"),
			DeliverySignups:   getEnv("DYNAMO_TABLE_DELIVERY_SIGNUPS", "delivery_signups"),
			ShopkeeperSignups: getEnv("DYNAMO_TABLE_SHOPKEEPER_SIGNUPS", "shopkeeper_signups"),
			Notifications:     getEnv("DYNAMO_TABLE_NOTIFICATIONS", "notifications"),
			Allocations:       getEnv("DYNAMO_TABLE_ALLOCATIONS", "allocations"),
		},
		S3BucketName: getEnv("S3_BUCKET_NAME", "grainlyyy-abi"),

		RPCURL:          getEnv("RPC_URL", ""),
		ContractAddress: getEnv("CONTRACT_ADDRESS", ""),
		AdminPrivateKey: strings.TrimPrefix(getEnv("ADMIN_PRIVATE_KEY", ""), "0x"),
		ChainID:         int64(getEnvInt("CHAIN_ID", 0)),
		ABIPath:         getEnv("ABI_PATH", "./abis/DiamondMergedABI.json"),
		ABICacheTTL:     getEnvDuration("ABI_CACHE_TTL", 10*time.Minute),
		TxTimeout:       getEnvDuration("TX_TIMEOUT", 2*time.Minute),
		ExplorerTxURL:   getEnv("EXPLORER_TX_URL", "https://amoy.polygonscan.com/tx/"),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,

		AdminUsername:      getEnv("ADMIN_USERNAME", "admin"),
		AdminPasswordHash:  getEnv("ADMIN_PASSWORD_HASH", ""),
		AdminEmail:         getEnv("ADMIN_EMAIL", ""),
		DefaultConsumerPIN: getEnv("DEFAULT_CONSUMER_PIN", "123456"),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@grainlyyy.in"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		SMSProvider:      getEnv("SMS_PROVIDER", "none"),
		SNSRegion:        getEnv("SNS_REGION", "ap-south-1"),
		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		OTLPEndpoint:      getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ReconcileInterval: getEnvDuration("RECONCILE_INTERVAL", 5*time.Minute),
		AllowedOrigins:    strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing or malformed required setting at once.
func (c *Config) Validate() error {
	var missing []string
	if c.RPCURL == "" {
		missing = append(missing, "RPC_URL")
	}
	if c.ContractAddress == "" {
		missing = append(missing, "CONTRACT_ADDRESS")
	}
	if c.AdminPrivateKey == "" {
		missing = append(missing, "ADMIN_PRIVATE_KEY")
	}
	if c.AWSRegion == "" {
		missing = append(missing, "AWS_REGION")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if !hexAddress.MatchString(c.ContractAddress) {
		return fmt.Errorf("CONTRACT_ADDRESS %q is not a valid hex address", c.ContractAddress)
	}
	switch c.SMSProvider {
	case "sns", "twilio", "none":
	default:
		return fmt.Errorf("SMS_PROVIDER must be one of sns, twilio, none; got %q", c.SMSProvider)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
