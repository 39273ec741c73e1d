package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	DB      DBConfig
	Storage StorageConfig
	Auth    AuthConfig
	Log     LogConfig
	Client  ClientConfig
}

type ServerConfig struct {
	Address string
}

type DBConfig struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     int
}

// StorageConfig 決定房間資料存放的位置："postgres" 或 "memory"
type StorageConfig struct {
	Driver string
}

// AuthConfig 包含 JWT 與 Google OAuth 的設定
type AuthConfig struct {
	JWTSecret          string
	TokenTTL           time.Duration
	GoogleClientID     string
	GoogleClientSecret string
	// CallbackURL 是 Google 授權完成後導回伺服器的位址
	CallbackURL string
}

// ErrWeakJWTSecret 表示 auth.jwtsecret 未設定、是範例值或太短
var ErrWeakJWTSecret = errors.New("auth.jwtsecret must be set to a private value of at least 32 characters (LETMEASK_AUTH_JWTSECRET)")

const minJWTSecretLen = 32

var placeholderSecrets = map[string]bool{
	"change-me": true,
	"changeme":  true,
	"secret":    true,
}

// Validate 檢查伺服器簽發 token 用的密鑰
func (c AuthConfig) Validate() error {
	secret := strings.TrimSpace(c.JWTSecret)
	if placeholderSecrets[strings.ToLower(secret)] || len(secret) < minJWTSecretLen {
		return ErrWeakJWTSecret
	}
	return nil
}

type LogConfig struct {
	Level  string
	Format string
}

// ClientConfig 給終端機客戶端使用
type ClientConfig struct {
	ServerURL string
	Token     string
}

// Load 從預設路徑讀取 config.yaml
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile 讀取指定的設定檔；path 為空時搜尋 ./pkg/config 與目前目錄。
// 找不到設定檔時使用預設值，環境變數 LETMEASK_* 會覆蓋檔案內容。
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./pkg/config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("letmeask")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "letmeask")
	v.SetDefault("db.port", 5432)

	v.SetDefault("storage.driver", "postgres")

	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.tokenttl", 240*time.Hour)
	v.SetDefault("auth.googleclientid", "")
	v.SetDefault("auth.googleclientsecret", "")
	v.SetDefault("auth.callbackurl", "http://localhost:8080/api/auth/google/callback")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("client.serverurl", "http://localhost:8080")
	v.SetDefault("client.token", "")
}
