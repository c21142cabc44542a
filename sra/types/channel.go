package types

import "strings"

// orders 频道的消息类型
const (
	ChannelOrders        = "orders"
	MessageTypeSubscribe = "subscribe"
	MessageTypeUpdate    = "update"
)

// OrdersChannelSubscribePayloadSchema 订阅过滤条件，全部可选
var OrdersChannelSubscribePayloadSchema = &Schema{Name: "OrdersChannelSubscribePayload", Fields: []Field{
	{Name: "makerAssetProxyId", Kind: KindString, Format: FormatHex},
	{Name: "takerAssetProxyId", Kind: KindString, Format: FormatHex},
	{Name: "networkId", Kind: KindInteger},
	{Name: "makerAssetAddress", Kind: KindString, Format: FormatAddress},
	{Name: "takerAssetAddress", Kind: KindString, Format: FormatAddress},
	{Name: "makerAssetData", Kind: KindString, Format: FormatHex},
	{Name: "takerAssetData", Kind: KindString, Format: FormatHex},
	{Name: "traderAssetData", Kind: KindString, Format: FormatHex},
}}

// OrdersChannelSubscribeSchema 订阅消息
var OrdersChannelSubscribeSchema = &Schema{Name: "OrdersChannelSubscribe", Fields: []Field{
	{Name: "type", Kind: KindString, Required: true},
	{Name: "channel", Kind: KindString, Required: true},
	{Name: "requestId", Kind: KindString, Required: true},
	{Name: "payload", Kind: KindObject, Schema: OrdersChannelSubscribePayloadSchema},
}}

// OrdersChannelUpdateSchema 推送消息
var OrdersChannelUpdateSchema = &Schema{Name: "OrdersChannelUpdate", Fields: []Field{
	{Name: "type", Kind: KindString, Required: true},
	{Name: "channel", Kind: KindString, Required: true},
	{Name: "requestId", Kind: KindString, Required: true},
	{Name: "payload", Kind: KindArray, Required: true, Elem: &Field{Kind: KindObject, Schema: OrderRecordSchema}},
}}

// OrdersChannelSubscribePayload 订阅过滤条件
type OrdersChannelSubscribePayload struct {
	MakerAssetProxyID *HexBytes `json:"makerAssetProxyId,omitempty"`
	TakerAssetProxyID *HexBytes `json:"takerAssetProxyId,omitempty"`
	NetworkID         *int      `json:"networkId,omitempty"`
	MakerAssetAddress *Address  `json:"makerAssetAddress,omitempty"`
	TakerAssetAddress *Address  `json:"takerAssetAddress,omitempty"`
	MakerAssetData    *HexBytes `json:"makerAssetData,omitempty"`
	TakerAssetData    *HexBytes `json:"takerAssetData,omitempty"`
	TraderAssetData   *HexBytes `json:"traderAssetData,omitempty"`
}

func (p *OrdersChannelSubscribePayload) UnmarshalJSON(data []byte) error {
	type plain OrdersChannelSubscribePayload
	var v plain
	if err := Decode(data, OrdersChannelSubscribePayloadSchema, &v); err != nil {
		return err
	}
	*p = OrdersChannelSubscribePayload(v)
	return nil
}

// Matches 判断一个订单是否满足过滤条件
// asset proxy id 与 asset address 按 ERC20 asset data 的布局（4 字节 proxy id + 32 字节补齐地址）比较
func (p *OrdersChannelSubscribePayload) Matches(o *SignedOrder) bool {
	if p == nil {
		return true
	}
	maker, taker := o.MakerAssetData.String(), o.TakerAssetData.String()
	if p.MakerAssetData != nil && p.MakerAssetData.String() != maker {
		return false
	}
	if p.TakerAssetData != nil && p.TakerAssetData.String() != taker {
		return false
	}
	if p.TraderAssetData != nil {
		t := p.TraderAssetData.String()
		if t != maker && t != taker {
			return false
		}
	}
	if p.MakerAssetProxyID != nil && !strings.HasPrefix(maker, p.MakerAssetProxyID.String()) {
		return false
	}
	if p.TakerAssetProxyID != nil && !strings.HasPrefix(taker, p.TakerAssetProxyID.String()) {
		return false
	}
	if p.MakerAssetAddress != nil && !assetDataHasAddress(maker, *p.MakerAssetAddress) {
		return false
	}
	if p.TakerAssetAddress != nil && !assetDataHasAddress(taker, *p.TakerAssetAddress) {
		return false
	}
	return true
}

func assetDataHasAddress(assetData string, addr Address) bool {
	// 0x + 8 位 proxy id + 24 位补零 + 40 位地址
	if len(assetData) < 2+8+64 {
		return false
	}
	return assetData[2+8+24:2+8+64] == strings.TrimPrefix(addr.String(), "0x")
}

// OrdersChannelSubscribe 订阅消息
type OrdersChannelSubscribe struct {
	Type      string                         `json:"type"`
	Channel   string                         `json:"channel"`
	RequestID string                         `json:"requestId"`
	Payload   *OrdersChannelSubscribePayload `json:"payload,omitempty"`
}

func (m *OrdersChannelSubscribe) UnmarshalJSON(data []byte) error {
	type plain OrdersChannelSubscribe
	var v plain
	if err := Decode(data, OrdersChannelSubscribeSchema, &v); err != nil {
		return err
	}
	*m = OrdersChannelSubscribe(v)
	return nil
}

// OrdersChannelUpdate 推送消息，payload 为新增或变化的订单
type OrdersChannelUpdate struct {
	Type      string        `json:"type"`
	Channel   string        `json:"channel"`
	RequestID string        `json:"requestId"`
	Payload   []OrderRecord `json:"payload"`
}

func (m *OrdersChannelUpdate) UnmarshalJSON(data []byte) error {
	type plain OrdersChannelUpdate
	var v plain
	if err := Decode(data, OrdersChannelUpdateSchema, &v); err != nil {
		return err
	}
	*m = OrdersChannelUpdate(v)
	return nil
}
