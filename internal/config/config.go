package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Configはアプリ全体の設定
type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`    // サーバーポート
	GoEnv    string `envconfig:"GO_ENV" default:"dev"`   // dev/prod
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL      string `envconfig:"DATABASE_URL"` // あればPOSTGRES_*より優先
	PostgresHost     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	PostgresPort     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresUser     string `envconfig:"POSTGRES_USER" default:"postgres"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD" default:"postgres"`
	PostgresDB       string `envconfig:"POSTGRES_DB" default:"shop"`
	PostgresSSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`

	JWTSecret string `envconfig:"JWT_SECRET"` // JWT署名シークレット（必須）

	VNPay   VNPay   `envconfig:"VNPAY"`
	Payment Payment `envconfig:"PAYMENT"`
	Tracing Tracing `envconfig:"OTEL"`
}

// VNPayの加盟店設定（VNPAY_*）
type VNPay struct {
	TmnCode    string `envconfig:"TMN_CODE"`
	HashSecret string `envconfig:"HASH_SECRET"`
	BaseURL    string `envconfig:"BASE_URL" default:"https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"`
	ReturnURL  string `envconfig:"RETURN_URL"`
}

// 決済の有効期限と戻り先（PAYMENT_*）
type Payment struct {
	Expiry     time.Duration `envconfig:"EXPIRY" default:"15m"`
	SuccessURL string        `envconfig:"SUCCESS_URL"`
	FailURL    string        `envconfig:"FAIL_URL"`
}

// トレースの出力先（OTEL_*）。noneならno-opのまま
type Tracing struct {
	Exporter    string `envconfig:"TRACES_EXPORTER" default:"none"` // none/stdout
	ServiceName string `envconfig:"SERVICE_NAME" default:"shop"`
}

// Loadは.env（あれば）→環境変数の順に読む
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnvは環境変数だけから組み立てる
func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.VNPay.TmnCode == "" {
		return Config{}, fmt.Errorf("VNPAY_TMN_CODE is required")
	}
	if cfg.VNPay.HashSecret == "" {
		return Config{}, fmt.Errorf("VNPAY_HASH_SECRET is required")
	}
	if cfg.VNPay.ReturnURL == "" {
		return Config{}, fmt.Errorf("VNPAY_RETURN_URL is required")
	}
	if cfg.Payment.SuccessURL == "" {
		return Config{}, fmt.Errorf("PAYMENT_SUCCESS_URL is required")
	}
	if cfg.Payment.FailURL == "" {
		return Config{}, fmt.Errorf("PAYMENT_FAIL_URL is required")
	}
	if cfg.Payment.Expiry <= 0 {
		return Config{}, fmt.Errorf("PAYMENT_EXPIRY must be positive")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Tracing.Exporter)) {
	case "", "none", "stdout":
	default:
		return Config{}, fmt.Errorf("OTEL_TRACES_EXPORTER must be none or stdout")
	}

	return cfg, nil
}

// Addrは":8080"形式で返す
func (c Config) Addr() string {
	if c.Port != "" && c.Port[0] == ':' {
		return c.Port
	}
	return ":" + c.Port
}

func (c Config) IsDev() bool {
	return c.GoEnv == "dev"
}

// DSN はDATABASE_URLを最優先で使う
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}
