package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/betbot/gosra/internal/relayer"
	"github.com/betbot/gosra/pkg/logger"
	"github.com/betbot/gosra/sra/client"
	"github.com/betbot/gosra/sra/types"
)

// ClientConfig SRA 客户端配置
type ClientConfig struct {
	Host         string        // relayer 根地址
	Timeout      time.Duration // 单次请求超时
	APIKey       string        // 为空则不发送
	APIKeyHeader string        // 默认 Authorization
	APIKeyPrefix string        // 例如 Bearer
	NetworkID    *int          // 为空时不带 networkId 参数
	Proxy        string
	RateLimit    *client.RateLimit
	Debug        bool
}

// RelayerConfig 参考 relayer 配置
type RelayerConfig struct {
	Listen        string
	DBPath        string
	NetworkID     int
	FeeRecipients []types.Address
}

// Config 应用配置
type Config struct {
	Client  ClientConfig
	Relayer RelayerConfig
	Log     logger.Config
}

// ConfigFile 配置文件结构（YAML）
type ConfigFile struct {
	Client struct {
		Host         string `yaml:"host"`
		Timeout      string `yaml:"timeout"` // 例如 30s
		APIKey       string `yaml:"api_key"`
		APIKeyHeader string `yaml:"api_key_header"`
		APIKeyPrefix string `yaml:"api_key_prefix"`
		NetworkID    *int   `yaml:"network_id"`
		Proxy        string `yaml:"proxy"`
		RateLimit    string `yaml:"rate_limit"` // 例如 10/1s
		Debug        bool   `yaml:"debug"`
	} `yaml:"client"`
	Relayer struct {
		Listen        string   `yaml:"listen"`
		DB            string   `yaml:"db"`
		NetworkID     int      `yaml:"network_id"`
		FeeRecipients []string `yaml:"fee_recipients"`
	} `yaml:"relayer"`
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSize    int    `yaml:"max_size"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAge     int    `yaml:"max_age"`
		Compress   bool   `yaml:"compress"`
		JSON       bool   `yaml:"json"`
	} `yaml:"log"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		Client: ClientConfig{
			Host:         client.DefaultHost,
			Timeout:      client.DefaultTimeout,
			APIKeyHeader: "Authorization",
		},
		Relayer: RelayerConfig{
			Listen:    ":3000",
			DBPath:    "data/relayer.db",
			NetworkID: relayer.DefaultNetworkID,
		},
		Log: logger.Config{
			Level:      "info",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
		},
	}
}

// LoadDotEnv 加载 .env 文件，文件不存在时忽略
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("加载 %s 失败: %w", p, err)
		}
	}
	return nil
}

// Load 加载配置（优先级：环境变量 > 配置文件 > 默认值）
// filePath 为空时只使用环境变量和默认值
func Load(filePath string) (*Config, error) {
	cfg := Default()

	if filePath != "" {
		cf, err := loadConfigFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("加载配置文件失败 %s: %w", filePath, err)
		}
		if err := cfg.applyFile(cf); err != nil {
			return nil, fmt.Errorf("配置文件 %s: %w", filePath, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadConfigFile 加载 YAML 配置文件
func loadConfigFile(filePath string) (*ConfigFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(filePath))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("不支持的配置文件格式: %s (支持 .yaml, .yml)", ext)
	}
	var cf ConfigFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("解析 YAML 配置文件失败: %w", err)
	}
	return &cf, nil
}

func (c *Config) applyFile(cf *ConfigFile) error {
	setString(&c.Client.Host, cf.Client.Host)
	setString(&c.Client.APIKey, cf.Client.APIKey)
	setString(&c.Client.APIKeyHeader, cf.Client.APIKeyHeader)
	setString(&c.Client.APIKeyPrefix, cf.Client.APIKeyPrefix)
	setString(&c.Client.Proxy, cf.Client.Proxy)
	if cf.Client.NetworkID != nil {
		id := *cf.Client.NetworkID
		c.Client.NetworkID = &id
	}
	c.Client.Debug = c.Client.Debug || cf.Client.Debug
	if cf.Client.Timeout != "" {
		d, err := parseTimeout(cf.Client.Timeout)
		if err != nil {
			return err
		}
		c.Client.Timeout = d
	}
	if cf.Client.RateLimit != "" {
		rl, err := ParseRateLimit(cf.Client.RateLimit)
		if err != nil {
			return err
		}
		c.Client.RateLimit = rl
	}

	setString(&c.Relayer.Listen, cf.Relayer.Listen)
	setString(&c.Relayer.DBPath, cf.Relayer.DB)
	if cf.Relayer.NetworkID != 0 {
		c.Relayer.NetworkID = cf.Relayer.NetworkID
	}
	if len(cf.Relayer.FeeRecipients) > 0 {
		recipients, err := parseAddresses(cf.Relayer.FeeRecipients)
		if err != nil {
			return err
		}
		c.Relayer.FeeRecipients = recipients
	}

	setString(&c.Log.Level, cf.Log.Level)
	setString(&c.Log.OutputFile, cf.Log.File)
	setInt(&c.Log.MaxSize, cf.Log.MaxSize)
	setInt(&c.Log.MaxBackups, cf.Log.MaxBackups)
	setInt(&c.Log.MaxAge, cf.Log.MaxAge)
	c.Log.Compress = c.Log.Compress || cf.Log.Compress
	c.Log.JSON = c.Log.JSON || cf.Log.JSON
	return nil
}

func (c *Config) applyEnv() error {
	c.Client.Host = getEnv("SRA_HOST", c.Client.Host)
	c.Client.APIKey = getEnv("SRA_API_KEY", c.Client.APIKey)
	c.Client.Proxy = getEnv("SRA_PROXY", c.Client.Proxy)
	c.Client.Debug = parseBoolEnv("SRA_DEBUG", c.Client.Debug)
	if v := os.Getenv("SRA_TIMEOUT"); v != "" {
		d, err := parseTimeout(v)
		if err != nil {
			return fmt.Errorf("SRA_TIMEOUT: %w", err)
		}
		c.Client.Timeout = d
	}
	if v := os.Getenv("SRA_NETWORK_ID"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SRA_NETWORK_ID: %w", err)
		}
		c.Client.NetworkID = &id
	}
	if v := os.Getenv("SRA_RATE_LIMIT"); v != "" {
		rl, err := ParseRateLimit(v)
		if err != nil {
			return fmt.Errorf("SRA_RATE_LIMIT: %w", err)
		}
		c.Client.RateLimit = rl
	}

	c.Relayer.Listen = getEnv("RELAYER_LISTEN", c.Relayer.Listen)
	c.Relayer.DBPath = getEnv("RELAYER_DB", c.Relayer.DBPath)
	c.Relayer.NetworkID = parseIntEnv("RELAYER_NETWORK_ID", c.Relayer.NetworkID)
	if v := os.Getenv("RELAYER_FEE_RECIPIENTS"); v != "" {
		recipients, err := parseAddresses(strings.Split(v, ","))
		if err != nil {
			return fmt.Errorf("RELAYER_FEE_RECIPIENTS: %w", err)
		}
		c.Relayer.FeeRecipients = recipients
	}

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.OutputFile = getEnv("LOG_FILE", c.Log.OutputFile)
	return nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if _, err := c.Client.APIConfiguration(nil); err != nil {
		return fmt.Errorf("client: %w", err)
	}
	if c.Relayer.Listen == "" {
		return fmt.Errorf("relayer: listen is required")
	}
	if c.Relayer.DBPath == "" {
		return fmt.Errorf("relayer: db is required")
	}
	if c.Relayer.NetworkID <= 0 {
		return fmt.Errorf("relayer: invalid network id %d", c.Relayer.NetworkID)
	}
	return nil
}

// APIConfiguration 转为 sra/client 的配置；log 为 nil 时由客户端使用默认 logger
func (c ClientConfig) APIConfiguration(log logrus.FieldLogger) (*client.Configuration, error) {
	cfg := client.NewConfiguration()
	cfg.Host = c.Host
	cfg.Timeout = c.Timeout
	cfg.Proxy = c.Proxy
	cfg.RateLimit = c.RateLimit
	cfg.Debug = c.Debug
	cfg.Logger = log
	if c.APIKey != "" {
		header := c.APIKeyHeader
		if header == "" {
			header = "Authorization"
		}
		cfg.APIKey[header] = c.APIKey
		if c.APIKeyPrefix != "" {
			cfg.APIKeyPrefix[header] = c.APIKeyPrefix
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RelayerServerConfig 转为 relayer.Config
func (c RelayerConfig) RelayerServerConfig(log logrus.FieldLogger) relayer.Config {
	return relayer.Config{
		DBPath:        c.DBPath,
		NetworkID:     c.NetworkID,
		FeeRecipients: c.FeeRecipients,
		Logger:        log,
	}
}

// ParseRateLimit 解析 "次数/窗口"，例如 "10/1s"；只写次数时窗口为 1 秒
func ParseRateLimit(s string) (*client.RateLimit, error) {
	s = strings.TrimSpace(s)
	countStr, windowStr, hasWindow := strings.Cut(s, "/")
	n, err := strconv.Atoi(strings.TrimSpace(countStr))
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("invalid rate limit %q", s)
	}
	window := time.Second
	if hasWindow {
		window, err = time.ParseDuration(strings.TrimSpace(windowStr))
		if err != nil || window <= 0 {
			return nil, fmt.Errorf("invalid rate limit window %q", s)
		}
	}
	return &client.RateLimit{Requests: n, Window: window}, nil
}

// parseTimeout 支持 Go duration（30s）或秒数（30）
func parseTimeout(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q", s)
	}
	return d, nil
}

func parseAddresses(values []string) ([]types.Address, error) {
	out := make([]types.Address, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		addr, err := types.ParseAddress(v)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv 解析整数环境变量
func parseIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// parseBoolEnv 解析布尔环境变量
func parseBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
