package types

// AssetDataTradeInfoSchema 单边资产的交易信息
var AssetDataTradeInfoSchema = &Schema{Name: "AssetDataTradeInfo", Fields: []Field{
	{Name: "assetData", Kind: KindString, Required: true, Format: FormatHex},
	{Name: "minAmount", Kind: KindString, Format: FormatNumeric},
	{Name: "maxAmount", Kind: KindString, Format: FormatNumeric},
	{Name: "precision", Kind: KindInteger},
}}

// AssetPairSchema 交易对
var AssetPairSchema = &Schema{Name: "AssetPair", Fields: []Field{
	{Name: "assetDataA", Kind: KindObject, Required: true, Schema: AssetDataTradeInfoSchema},
	{Name: "assetDataB", Kind: KindObject, Required: true, Schema: AssetDataTradeInfoSchema},
}}

// AssetPairsResponseSchema GET /asset_pairs 响应
var AssetPairsResponseSchema = PaginatedCollectionSchema("AssetPairsResponse",
	Field{Kind: KindObject, Schema: AssetPairSchema})

// OrderbookResponseSchema GET /orderbook 响应
var OrderbookResponseSchema = &Schema{Name: "OrderbookResponse", Fields: []Field{
	{Name: "bids", Kind: KindObject, Required: true, Schema: OrdersResponseSchema},
	{Name: "asks", Kind: KindObject, Required: true, Schema: OrdersResponseSchema},
}}

// AssetDataTradeInfo 资产交易限制，可选字段为 nil 时不输出
type AssetDataTradeInfo struct {
	AssetData HexBytes `json:"assetData"`
	MinAmount *Amount  `json:"minAmount,omitempty"`
	MaxAmount *Amount  `json:"maxAmount,omitempty"`
	Precision *int     `json:"precision,omitempty"`
}

func (t *AssetDataTradeInfo) UnmarshalJSON(data []byte) error {
	type plain AssetDataTradeInfo
	var v plain
	if err := Decode(data, AssetDataTradeInfoSchema, &v); err != nil {
		return err
	}
	*t = AssetDataTradeInfo(v)
	return nil
}

// AssetPair 交易对
type AssetPair struct {
	AssetDataA AssetDataTradeInfo `json:"assetDataA"`
	AssetDataB AssetDataTradeInfo `json:"assetDataB"`
}

func (p *AssetPair) UnmarshalJSON(data []byte) error {
	type plain AssetPair
	var v plain
	if err := Decode(data, AssetPairSchema, &v); err != nil {
		return err
	}
	*p = AssetPair(v)
	return nil
}

// AssetPairsResponse GET /asset_pairs 响应
type AssetPairsResponse struct {
	PaginatedCollection[AssetPair]
}

func (r *AssetPairsResponse) UnmarshalJSON(data []byte) error {
	return decodePage(data, AssetPairsResponseSchema, &r.PaginatedCollection)
}

// OrderbookResponse 订单簿：bids 和 asks 各是一个分页的订单集合
type OrderbookResponse struct {
	Bids OrdersResponse `json:"bids"`
	Asks OrdersResponse `json:"asks"`
}

func (r *OrderbookResponse) UnmarshalJSON(data []byte) error {
	type plain OrderbookResponse
	var v plain
	if err := Decode(data, OrderbookResponseSchema, &v); err != nil {
		return err
	}
	*r = OrderbookResponse(v)
	return nil
}
