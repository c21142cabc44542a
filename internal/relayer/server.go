package relayer

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/betbot/gosra/sra/types"
)

const (
	// DefaultNetworkID ganache 测试网
	DefaultNetworkID = 50
	// MaxPerPage 单页上限
	MaxPerPage = 1000
)

type Config struct {
	DBPath        string // ":memory:" 表示内存库
	NetworkID     int
	FeeRecipients []types.Address
	Logger        logrus.FieldLogger
}

// Server 最小的 SRA v2 relayer：订单簿存在 SQLite 里，新订单通过 /ws 推送
type Server struct {
	cfg Config
	db  *sql.DB
	hub *hub
	log logrus.FieldLogger
}

func New(cfg Config) (*Server, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("db path is required")
	}
	if cfg.NetworkID == 0 {
		cfg.NetworkID = DefaultNetworkID
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.WithField("component", "relayer")
	}

	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite：单连接，内存库也只能这样共享
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Server{cfg: cfg, db: db, hub: newHub(cfg.Logger, cfg.NetworkID), log: cfg.Logger}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Server) Close() error {
	s.hub.closeAll()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.GET("/orders", s.handleOrdersList)
	r.POST("/orders", s.handleOrderPost)
	r.GET("/orders/:orderHash", s.handleOrderGet)
	r.GET("/asset_pairs", s.handleAssetPairs)
	r.GET("/orderbook", s.handleOrderbook)
	r.POST("/order_config", s.handleOrderConfig)
	r.GET("/fee_recipients", s.handleFeeRecipients)
	r.GET("/ws", func(c *gin.Context) { s.hub.serve(c.Writer, c.Request) })

	return r
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		}).Debugf("%s %s", c.Request.Method, c.Request.URL.RequestURI())
	}
}
