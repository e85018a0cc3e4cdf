package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Configはアプリ全体の設定
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	//hosted Postgresの接続文字列。あればPostgres個別設定より優先
	DatabaseURL string `env:"DATABASE_URL"`

	Postgres Postgres `envPrefix:"POSTGRES_"`
	Stripe   Stripe   `envPrefix:"STRIPE_"`
	Booking  Booking  `envPrefix:"BOOKING_"`
	Admin    Admin    `envPrefix:"ADMIN_"`
	Log      Log      `envPrefix:"LOG_"`

	//JWT署名シークレット（管理画面ログイン）
	JWTSecret string `env:"JWT_SECRET"`

	GoEnv string `env:"GO_ENV" envDefault:"dev"`
}

type Postgres struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD" envDefault:"postgres"`
	DB       string `env:"DB" envDefault:"goodstay"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
}

type Stripe struct {
	SecretKey     string `env:"SECRET_KEY"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`

	//Checkout完了/キャンセル後に戻すフロント側URL
	SuccessURL string `env:"SUCCESS_URL" envDefault:"http://localhost:3000/shop/success?session_id={CHECKOUT_SESSION_ID}"`
	CancelURL  string `env:"CANCEL_URL" envDefault:"http://localhost:3000/shop/cart"`
}

// 顔合わせ予約の受付ルール
type Booking struct {
	//営業時間（HH:MM）
	OpenTime  string `env:"OPEN_TIME" envDefault:"09:00"`
	CloseTime string `env:"CLOSE_TIME" envDefault:"17:00"`

	//枠の間隔（分）
	SlotIntervalMin int `env:"SLOT_INTERVAL_MIN" envDefault:"60"`

	//当日予約に必要な最低リードタイム（時間）
	MinAdvanceHours int `env:"MIN_ADVANCE_HOURS" envDefault:"3"`
}

// 起動時にseedする管理者アカウント
type Admin struct {
	Email    string `env:"EMAIL"`
	Password string `env:"PASSWORD"`
}

type Log struct {
	Level string `env:"LEVEL" envDefault:"info"`
}

// Loadは環境変数から設定を読み込む
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}

	//必須チェック
	if cfg.Stripe.SecretKey == "" {
		return Config{}, fmt.Errorf("STRIPE_SECRET_KEY is required")
	}
	if cfg.Stripe.WebhookSecret == "" {
		return Config{}, fmt.Errorf("STRIPE_WEBHOOK_SECRET is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}
