package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host            string
		DebugHost       string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		InMemory      bool
	}

	PaymentConfig struct {
		APIURL          string
		CheckoutBaseURL string
		APIKey          string
		MerchantID      string
		WebhookSecret   string
		SignatureHeader string
		SiteURL         string
		Timeout         time.Duration
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
		TTL      time.Duration
	}

	Config struct {
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		AuthSecret       string
		FrontendBaseURL  string
		RollbarToken     string
		SendgridApiKey   string
		defaultFromEmail string

		Server   ServerConfig
		Database DatabaseConfig
		Payment  PaymentConfig
		Redis    RedisConfig
	}
)

func (dbConf DatabaseConfig) Address() string {
	return dbConf.Host + ":" + dbConf.Port
}

// CacheEnabled reports whether an access cache address is configured.
func (rConf RedisConfig) CacheEnabled() bool {
	return rConf.Addr != ""
}

func (conf *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(conf.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: conf.AppName, Address: conf.defaultFromEmail}
	}
	if addr.Name == "" {
		addr.Name = conf.AppName
	}
	return *addr
}

func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Fightlab")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("server.host", "0.0.0.0:8000")
	v.SetDefault("server.debugHost", "0.0.0.0:4000")
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 10*time.Second)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "fightlab")
	v.SetDefault("database.user", "fightlab")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", false)
	v.SetDefault("database.inMemory", false)
	v.SetDefault("payment.apiURL", "https://b2b.revolut.com")
	v.SetDefault("payment.checkoutBaseURL", "https://pay.revolut.com")
	v.SetDefault("payment.apiKey", "")
	v.SetDefault("payment.merchantID", "")
	v.SetDefault("payment.webhookSecret", "")
	v.SetDefault("payment.signatureHeader", "Revolut-Signature")
	v.SetDefault("payment.siteURL", "http://localhost:3000")
	v.SetDefault("payment.timeout", 15*time.Second)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 10*time.Minute)
	v.SetDefault("authSecret", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:              strings.ToLower(env),
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		AuthSecret:       v.GetString("authSecret"),
		FrontendBaseURL:  strings.TrimRight(v.GetString("frontendBaseURL"), "/"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			DebugHost:       v.GetString("server.debugHost"),
			ReadTimeout:     v.GetDuration("server.readTimeout"),
			WriteTimeout:    v.GetDuration("server.writeTimeout"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			InMemory:      v.GetBool("database.inMemory"),
		},
		Payment: PaymentConfig{
			APIURL:          strings.TrimRight(v.GetString("payment.apiURL"), "/"),
			CheckoutBaseURL: strings.TrimRight(v.GetString("payment.checkoutBaseURL"), "/"),
			APIKey:          v.GetString("payment.apiKey"),
			MerchantID:      v.GetString("payment.merchantID"),
			WebhookSecret:   v.GetString("payment.webhookSecret"),
			SignatureHeader: v.GetString("payment.signatureHeader"),
			SiteURL:         strings.TrimRight(v.GetString("payment.siteURL"), "/"),
			Timeout:         v.GetDuration("payment.timeout"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			TTL:      v.GetDuration("redis.ttl"),
		},
	}
}

// NewTestConfig returns a configuration suited for unit tests: in-memory storage, no external services.
func NewTestConfig() *Config {
	return &Config{
		Env:              "test",
		Build:            "test",
		TestMode:         true,
		AppName:          "Fightlab",
		AuthSecret:       "test-auth-secret",
		FrontendBaseURL:  "http://localhost:3000",
		defaultFromEmail: "noreply@localhost",
		Server: ServerConfig{
			Host:            "127.0.0.1:0",
			ShutdownTimeout: time.Second,
		},
		Database: DatabaseConfig{InMemory: true},
		Payment: PaymentConfig{
			CheckoutBaseURL: "https://pay.example.com",
			APIKey:          "test-api-key",
			MerchantID:      "test-merchant",
			WebhookSecret:   "test-webhook-secret",
			SignatureHeader: "Revolut-Signature",
			SiteURL:         "http://localhost:3000",
			Timeout:         time.Second,
		},
	}
}

func (conf *Config) String() string {
	return fmt.Sprintf("Config{env=%s build=%s debug=%t inMemory=%t}", conf.Env, conf.Build, conf.Debug, conf.Database.InMemory)
}
