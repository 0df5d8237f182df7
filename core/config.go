package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Address         string
		ShutdownTimeout time.Duration
		DisableReqLogs  bool
	}

	SessionConfig struct {
		CookieName   string
		IdleTimeout  time.Duration
		SecureCookie bool
	}

	AuthConfig struct {
		MaxLoginAttempts   int
		LoginAttemptWindow time.Duration
		BcryptCost         int
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		MaxOpenConns  int
	}

	Config struct {
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		RollbarToken     string
		SendgridApiKey   string
		DefaultFromEmail mail.Address

		Server   ServerConfig
		Session  SessionConfig
		Auth     AuthConfig
		Database DatabaseConfig
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// NewConfig loads the configuration for the current ENV (DEV by default).
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("build", "dev")
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Academia")
	conf.SetDefault("secretKey", "6e0f3b9c1d2a4c8e9f7a5b3c1d0e2f4a6b8c0d1e3f5a7b9c2d4e6f8a0b1c3d5e")
	conf.SetDefault("defaultFromEmail", "Academia <noreply@localhost>")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("sendgridApiKey", "")

	conf.SetDefault("server.address", ":8000")
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.disableReqLogs", false)

	conf.SetDefault("session.cookieName", "academia_session")
	conf.SetDefault("session.idleTimeout", 30*time.Minute)
	conf.SetDefault("session.secureCookie", false)

	conf.SetDefault("auth.maxLoginAttempts", 5)
	conf.SetDefault("auth.loginAttemptWindow", 15*time.Minute)
	conf.SetDefault("auth.bcryptCost", 12)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", 5432)
	conf.SetDefault("database.name", "academia")
	conf.SetDefault("database.user", "academia")
	conf.SetDefault("database.password", "academia")
	conf.SetDefault("database.adminUser", "postgres")
	conf.SetDefault("database.adminPassword", "")
	conf.SetDefault("database.disableTLS", true)
	conf.SetDefault("database.maxOpenConns", 10)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	from, err := mail.ParseAddress(conf.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.defaultFromEmail: %v", err)
	}

	return &Config{
		Env:              env,
		Build:            conf.GetString("build"),
		Debug:            conf.GetBool("debug"),
		TestMode:         env == "TEST",
		AppName:          conf.GetString("appName"),
		SecretKey:        conf.GetString("secretKey"),
		RollbarToken:     conf.GetString("rollbarToken"),
		SendgridApiKey:   conf.GetString("sendgridApiKey"),
		DefaultFromEmail: *from,
		Server: ServerConfig{
			Address:         conf.GetString("server.address"),
			ShutdownTimeout: conf.GetDuration("server.shutdownTimeout"),
			DisableReqLogs:  conf.GetBool("server.disableReqLogs"),
		},
		Session: SessionConfig{
			CookieName:   conf.GetString("session.cookieName"),
			IdleTimeout:  conf.GetDuration("session.idleTimeout"),
			SecureCookie: conf.GetBool("session.secureCookie"),
		},
		Auth: AuthConfig{
			MaxLoginAttempts:   conf.GetInt("auth.maxLoginAttempts"),
			LoginAttemptWindow: conf.GetDuration("auth.loginAttemptWindow"),
			BcryptCost:         conf.GetInt("auth.bcryptCost"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("database.engine"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetInt("database.port"),
			Name:          conf.GetString("database.name"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			DisableTLS:    conf.GetBool("database.disableTLS"),
			MaxOpenConns:  conf.GetInt("database.maxOpenConns"),
		},
	}
}

// NewTestConfig returns the configuration used by tests: no Rollbar, cheap bcrypt.
func NewTestConfig() *Config {
	conf := NewConfig()
	conf.Env = "TEST"
	conf.TestMode = true
	conf.Debug = false
	conf.RollbarToken = ""
	conf.Auth.BcryptCost = 4 // bcrypt.MinCost
	conf.Server.DisableReqLogs = true
	return conf
}
