package relayer

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/betbot/gosra/sra/types"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// hub 管理 orders 频道的连接和订阅
type hub struct {
	log       logrus.FieldLogger
	networkID int

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

func newHub(log logrus.FieldLogger, networkID int) *hub {
	return &hub{log: log, networkID: networkID, clients: make(map[*wsClient]struct{})}
}

// wsClient 单个 websocket 连接
type wsClient struct {
	id   string
	hub  *hub
	conn *websocket.Conn
	send chan []byte

	subsMu sync.RWMutex
	subs   map[string]*types.OrdersChannelSubscribePayload // requestId -> 过滤条件
}

func (h *hub) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("[ws] upgrade failed")
		return
	}
	c := &wsClient{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		subs: make(map[string]*types.OrdersChannelSubscribePayload),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	h.log.Debugf("[ws] client connected: %s (total: %d)", c.id, total)

	go c.writePump()
	go c.readPump()
}

func (h *hub) remove(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	h.log.Debugf("[ws] client disconnected: %s (total: %d)", c.id, total)
}

// publish 把新订单推给所有匹配的订阅，每个订阅一条 update
func (h *hub) publish(rec types.OrderRecord) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		for _, requestID := range c.matching(&rec.Order, h.networkID) {
			msg, err := json.Marshal(types.OrdersChannelUpdate{
				Type:      types.MessageTypeUpdate,
				Channel:   types.ChannelOrders,
				RequestID: requestID,
				Payload:   []types.OrderRecord{rec},
			})
			if err != nil {
				h.log.WithError(err).Error("[ws] marshal update")
				return
			}
			select {
			case c.send <- msg:
			default:
				h.log.Warnf("[ws] client %s send buffer full, dropping update", c.id)
			}
		}
	}
}

// subscriptions 当前全部连接上的订阅数
func (h *hub) subscriptions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.clients {
		c.subsMu.RLock()
		n += len(c.subs)
		c.subsMu.RUnlock()
	}
	return n
}

func (h *hub) closeAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		_ = c.conn.Close()
	}
}

func (c *wsClient) matching(o *types.SignedOrder, networkID int) []string {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()

	var out []string
	for requestID, p := range c.subs {
		if p != nil && p.NetworkID != nil && *p.NetworkID != networkID {
			continue
		}
		if p.Matches(o) {
			out = append(out, requestID)
		}
	}
	return out
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.WithError(err).Debug("[ws] read error")
			}
			return
		}

		var sub types.OrdersChannelSubscribe
		if err := json.Unmarshal(message, &sub); err != nil {
			c.hub.log.WithError(err).Warnf("[ws] client %s invalid message", c.id)
			continue
		}
		if sub.Type != types.MessageTypeSubscribe || sub.Channel != types.ChannelOrders {
			c.hub.log.Warnf("[ws] client %s unsupported %s/%s", c.id, sub.Type, sub.Channel)
			continue
		}
		c.subsMu.Lock()
		c.subs[sub.RequestID] = sub.Payload
		c.subsMu.Unlock()
		c.hub.log.Debugf("[ws] client %s subscribed: %s", c.id, sub.RequestID)
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
