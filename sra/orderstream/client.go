package orderstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/betbot/gosra/sra/types"
)

// ErrClosed 连接已关闭
var ErrClosed = errors.New("orderstream: connection closed")

// Handler 收到某个订阅的 update 时调用，在读协程中执行，不要阻塞
type Handler func(update *types.OrdersChannelUpdate)

// Config orders 频道客户端配置
type Config struct {
	URL              string // ws://relayer/ws
	ProxyURL         string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	Header           http.Header
	Logger           logrus.FieldLogger
}

// DefaultConfig 返回默认配置
func DefaultConfig(wsURL string) *Config {
	return &Config{
		URL:              wsURL,
		HandshakeTimeout: 30 * time.Second,
		WriteTimeout:     10 * time.Second,
	}
}

// URLFromHost 由 REST 根地址推出 websocket 地址：http(s) -> ws(s)，路径追加 /ws
func URLFromHost(host string) (string, error) {
	u, err := url.Parse(strings.TrimRight(host, "/"))
	if err != nil {
		return "", errors.Wrapf(err, "invalid host %q", host)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", errors.Errorf("invalid host %q: unsupported scheme", host)
	}
	u.Path += "/ws"
	return u.String(), nil
}

// Client 一条 orders 频道连接；一个读协程负责分发 update
type Client struct {
	cfg  Config
	conn *websocket.Conn
	log  logrus.FieldLogger

	writeMu sync.Mutex

	handlersMu sync.RWMutex
	handlers   map[string]Handler

	closeOnce sync.Once
	done      chan struct{}
	errMu     sync.Mutex
	err       error
}

// Dial 建立连接；ctx 只约束握手，连接的生命周期由 Close 控制
func Dial(ctx context.Context, cfg *Config) (*Client, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, errors.New("orderstream: url is required")
	}
	c := &Client{
		cfg:      *cfg,
		handlers: make(map[string]Handler),
		done:     make(chan struct{}),
		log:      cfg.Logger,
	}
	if c.log == nil {
		c.log = logrus.WithField("component", "sra-orderstream")
	}
	if c.cfg.WriteTimeout <= 0 {
		c.cfg.WriteTimeout = 10 * time.Second
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout, Proxy: http.ProxyFromEnvironment}
	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, errors.Wrap(err, "invalid proxy URL")
		}
		dialer.Proxy = http.ProxyURL(proxyURL)
	}

	conn, _, err := dialer.DialContext(ctx, cfg.URL, cfg.Header)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", cfg.URL)
	}
	c.conn = conn
	c.log.Debugf("[orderstream] connected: %s", cfg.URL)

	go c.readLoop()
	return c, nil
}

// Subscribe 发送订阅消息，返回生成的 requestId；payload 为 nil 表示订阅全部订单
func (c *Client) Subscribe(payload *types.OrdersChannelSubscribePayload, h Handler) (string, error) {
	requestID := uuid.NewString()

	c.handlersMu.Lock()
	c.handlers[requestID] = h
	c.handlersMu.Unlock()

	msg := types.OrdersChannelSubscribe{
		Type:      types.MessageTypeSubscribe,
		Channel:   types.ChannelOrders,
		RequestID: requestID,
		Payload:   payload,
	}
	if err := c.writeJSON(msg); err != nil {
		c.handlersMu.Lock()
		delete(c.handlers, requestID)
		c.handlersMu.Unlock()
		return "", err
	}
	return requestID, nil
}

func (c *Client) writeJSON(v any) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := c.conn.WriteJSON(v); err != nil {
		return errors.Wrap(err, "orderstream: write")
	}
	return nil
}

func (c *Client) readLoop() {
	defer c.shutdown(nil)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.shutdown(ErrClosed)
			} else {
				c.shutdown(errors.Wrap(err, "orderstream: read"))
			}
			return
		}

		var update types.OrdersChannelUpdate
		if err := json.Unmarshal(data, &update); err != nil {
			c.log.WithError(err).Warnf("[orderstream] invalid message: %s", truncate(string(data), 256))
			continue
		}

		c.handlersMu.RLock()
		h, ok := c.handlers[update.RequestID]
		c.handlersMu.RUnlock()
		if !ok {
			c.log.Debugf("[orderstream] update for unknown request %s", update.RequestID)
			continue
		}
		if h != nil {
			h(&update)
		}
	}
}

func (c *Client) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.errMu.Lock()
		c.err = err
		c.errMu.Unlock()
		close(c.done)
		_ = c.conn.Close()
	})
}

// Done 连接结束时关闭
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err 连接异常结束的原因；主动 Close 时为 nil
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Close 发送关闭帧并断开连接，读协程随之退出
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.cfg.WriteTimeout))
		c.writeMu.Unlock()
		_ = c.conn.Close()
	})
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
