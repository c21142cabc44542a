package client

import (
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultHost launch kit 默认监听地址
	DefaultHost      = "http://localhost:3000"
	DefaultUserAgent = "gosra/1.0.0"
	DefaultTimeout   = 60 * time.Second
)

// RateLimit 客户端侧限速（每个 operation 单独计数）
type RateLimit struct {
	Requests int           // 窗口内允许的请求数
	Window   time.Duration // 窗口大小
}

// Configuration 客户端配置，构造 APIClient 后不再修改
type Configuration struct {
	// Host relayer 根地址，例如 https://api.radarrelay.com/0x/v2（不带结尾斜杠）
	Host string

	// DefaultHeaders 每个请求都会带上的头
	DefaultHeaders map[string]string

	// Timeout 单次请求超时，0 表示不限制
	Timeout time.Duration

	// APIKey 头名 -> key；APIKeyPrefix 头名 -> 前缀（例如 Bearer）
	APIKey       map[string]string
	APIKeyPrefix map[string]string

	// Username/Password 非空时使用 HTTP Basic 认证
	Username string
	Password string

	UserAgent string

	// Proxy 代理地址，为空时沿用环境变量（HTTP_PROXY 等）
	Proxy string

	// RateLimit 为 nil 时不限速
	RateLimit *RateLimit

	// Debug 打印每个请求的调试日志
	Debug bool

	Logger logrus.FieldLogger
}

// NewConfiguration 返回带默认值的配置
func NewConfiguration() *Configuration {
	return &Configuration{
		Host:           DefaultHost,
		DefaultHeaders: make(map[string]string),
		Timeout:        DefaultTimeout,
		APIKey:         make(map[string]string),
		APIKeyPrefix:   make(map[string]string),
		UserAgent:      DefaultUserAgent,
	}
}

// AddDefaultHeader 设置默认请求头
func (c *Configuration) AddDefaultHeader(key, value string) {
	if c.DefaultHeaders == nil {
		c.DefaultHeaders = make(map[string]string)
	}
	c.DefaultHeaders[key] = value
}

// APIKeyWithPrefix 返回带前缀的 key，未配置时返回空串
func (c *Configuration) APIKeyWithPrefix(header string) string {
	key := c.APIKey[header]
	if key == "" {
		return ""
	}
	if prefix := c.APIKeyPrefix[header]; prefix != "" {
		return prefix + " " + key
	}
	return key
}

// Validate 检查 Host
func (c *Configuration) Validate() error {
	if c.Host == "" {
		return errors.New("host is required")
	}
	u, err := url.Parse(c.Host)
	if err != nil {
		return errors.Wrapf(err, "invalid host %q", c.Host)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Errorf("invalid host %q: expected absolute http(s) URL", c.Host)
	}
	if c.Proxy != "" {
		if _, err := url.Parse(c.Proxy); err != nil {
			return errors.Wrapf(err, "invalid proxy %q", c.Proxy)
		}
	}
	if c.RateLimit != nil && (c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0) {
		return errors.Errorf("invalid rate limit %d/%s", c.RateLimit.Requests, c.RateLimit.Window)
	}
	return nil
}

// normalized 复制一份并补齐默认值，Host 去掉结尾斜杠
func (c *Configuration) normalized() *Configuration {
	out := *c
	out.Host = strings.TrimRight(c.Host, "/")
	out.DefaultHeaders = copyMap(c.DefaultHeaders)
	out.APIKey = copyMap(c.APIKey)
	out.APIKeyPrefix = copyMap(c.APIKeyPrefix)
	if out.UserAgent == "" {
		out.UserAgent = DefaultUserAgent
	}
	if out.Logger == nil {
		out.Logger = logrus.WithField("component", "sra-client")
	}
	return &out
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
