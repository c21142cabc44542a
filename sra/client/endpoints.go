package client

import "net/http"

// SRA 操作目录
var (
	OpGetOrder         = Operation{ID: "getOrder", Method: http.MethodGet, Path: "/orders/{orderHash}"}
	OpGetOrders        = Operation{ID: "getOrders", Method: http.MethodGet, Path: "/orders"}
	OpGetAssetPairs    = Operation{ID: "getAssetPairs", Method: http.MethodGet, Path: "/asset_pairs"}
	OpGetOrderbook     = Operation{ID: "getOrderbook", Method: http.MethodGet, Path: "/orderbook"}
	OpGetOrderConfig   = Operation{ID: "getOrderConfig", Method: http.MethodPost, Path: "/order_config"}
	OpGetFeeRecipients = Operation{ID: "getFeeRecipients", Method: http.MethodGet, Path: "/fee_recipients"}
	OpPostOrder        = Operation{ID: "postOrder", Method: http.MethodPost, Path: "/orders"}
)

// Operations 全部操作，按 ID 索引
var Operations = map[string]Operation{
	OpGetOrder.ID:         OpGetOrder,
	OpGetOrders.ID:        OpGetOrders,
	OpGetAssetPairs.ID:    OpGetAssetPairs,
	OpGetOrderbook.ID:     OpGetOrderbook,
	OpGetOrderConfig.ID:   OpGetOrderConfig,
	OpGetFeeRecipients.ID: OpGetFeeRecipients,
	OpPostOrder.ID:        OpPostOrder,
}
