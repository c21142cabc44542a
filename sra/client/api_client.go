package client

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/betbot/gosra/pkg/ratelimit"
	"github.com/betbot/gosra/sra/types"
)

// Operation 一个 SRA 操作的静态描述
type Operation struct {
	ID     string
	Method string
	Path   string // 路径模板，例如 /orders/{orderHash}
}

// Request 单次调用的参数
type Request struct {
	PathParams        map[string]string
	QueryParams       map[string]any
	CollectionFormats map[string]CollectionFormat
	HeaderParams      map[string]string
	Body              any
}

// Response 原始响应信息（对应 *_with_http_info 的返回）
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
}

// APIClient 把一次操作调用翻译成 HTTP 交换
// 除了只读的配置外不持有每次调用的状态，可并发使用
type APIClient struct {
	cfg     *Configuration
	http    *resty.Client
	limiter *ratelimit.Manager
	log     logrus.FieldLogger
}

// NewAPIClient 创建客户端；cfg 为 nil 时使用默认配置
func NewAPIClient(cfg *Configuration) (*APIClient, error) {
	if cfg == nil {
		cfg = NewConfiguration()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.normalized()

	// 不做自动重试，重试策略由调用方决定
	rc := resty.New().
		SetBaseURL(cfg.Host).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json")
	if cfg.Proxy != "" {
		rc.SetProxy(cfg.Proxy)
	}
	if cfg.Username != "" || cfg.Password != "" {
		rc.SetBasicAuth(cfg.Username, cfg.Password)
	}
	rc.SetLogger(restyLogger{cfg.Logger})

	c := &APIClient{cfg: cfg, http: rc, log: cfg.Logger}
	if cfg.RateLimit != nil {
		c.limiter = ratelimit.NewManager(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}
	return c, nil
}

// Configuration 返回客户端使用的配置副本，修改副本不影响客户端
func (c *APIClient) Configuration() Configuration {
	out := *c.cfg
	out.DefaultHeaders = copyMap(c.cfg.DefaultHeaders)
	out.APIKey = copyMap(c.cfg.APIKey)
	out.APIKeyPrefix = copyMap(c.cfg.APIKeyPrefix)
	return out
}

// CallAPI 执行一次操作
// out 为 nil 表示无内容；*types.Any 接收原始 JSON；其他指针按模型 schema 解码
func (c *APIClient) CallAPI(ctx context.Context, op Operation, req *Request, out any) (*Response, error) {
	if req == nil {
		req = &Request{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	path, err := expandPath(op.Path, req.PathParams)
	if err != nil {
		return nil, errors.Wrap(err, op.ID)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, op.ID); err != nil {
			return nil, &TransportError{Operation: op.ID, Method: op.Method, URL: c.cfg.Host + path, Err: err}
		}
	}

	r := c.http.R().SetContext(ctx)
	for k, v := range c.cfg.DefaultHeaders {
		r.SetHeader(k, v)
	}
	for header := range c.cfg.APIKey {
		if v := c.cfg.APIKeyWithPrefix(header); v != "" {
			r.SetHeader(header, v)
		}
	}
	for k, v := range req.HeaderParams {
		r.SetHeader(k, v)
	}
	if q := buildQuery(req.QueryParams, req.CollectionFormats); len(q) > 0 {
		r.SetQueryParamsFromValues(q)
	}
	if req.Body != nil {
		body, err := json.Marshal(req.Body)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: encode request body", op.ID)
		}
		r.SetHeader("Content-Type", "application/json")
		r.SetBody(body)
	}

	start := time.Now()
	resp, err := r.Execute(strings.ToUpper(op.Method), path)
	duration := time.Since(start)
	if err != nil {
		if c.cfg.Debug {
			c.log.WithError(err).Debugf("[sra] %s %s failed (%v)", op.Method, path, duration)
		}
		return nil, &TransportError{Operation: op.ID, Method: op.Method, URL: c.cfg.Host + path, Err: err}
	}

	result := &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
		Duration:   duration,
	}
	if c.cfg.Debug {
		c.log.WithFields(logrus.Fields{
			"op":       op.ID,
			"status":   result.StatusCode,
			"duration": duration,
		}).Debugf("[sra] %s %s", op.Method, resp.Request.URL)
	}

	if !resp.IsSuccess() {
		return result, &APIError{
			Operation:  op.ID,
			StatusCode: result.StatusCode,
			Status:     resp.Status(),
			Header:     result.Header,
			Body:       result.Body,
		}
	}

	if out == nil {
		return result, nil
	}
	if err := deserialize(result.Body, out); err != nil {
		return result, &DecodeError{Operation: op.ID, StatusCode: result.StatusCode, Body: result.Body, Err: err}
	}
	return result, nil
}

// deserialize 按目标类型解码响应体；模型类型的 UnmarshalJSON 会走各自的 schema
func deserialize(body []byte, out any) error {
	if len(strings.TrimSpace(string(body))) == 0 {
		return &types.DecodeError{Schema: "response", Expected: "JSON body", Actual: "empty body"}
	}
	return json.Unmarshal(body, out)
}

// restyLogger 把 resty 的内部日志转到 logrus
type restyLogger struct {
	log logrus.FieldLogger
}

func (l restyLogger) Errorf(format string, v ...interface{}) { l.log.Errorf(format, v...) }
func (l restyLogger) Warnf(format string, v ...interface{})  { l.log.Warnf(format, v...) }
func (l restyLogger) Debugf(format string, v ...interface{}) { l.log.Debugf(format, v...) }
