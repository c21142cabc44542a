package client

import (
	"context"

	"github.com/pkg/errors"

	"github.com/betbot/gosra/sra/types"
)

// DefaultAPI SRA v2 的全部操作
type DefaultAPI struct {
	client *APIClient
}

// NewDefaultAPI client 为 nil 时用默认配置创建
func NewDefaultAPI(client *APIClient) (*DefaultAPI, error) {
	if client == nil {
		c, err := NewAPIClient(nil)
		if err != nil {
			return nil, err
		}
		client = c
	}
	return &DefaultAPI{client: client}, nil
}

// Client 底层 APIClient
func (a *DefaultAPI) Client() *APIClient {
	return a.client
}

// Ptr 取地址，方便填写可选参数
func Ptr[T any](v T) *T {
	return &v
}

// Pagination 分页参数，nil 表示使用 relayer 默认值
type Pagination struct {
	Page    *int
	PerPage *int
}

func (p Pagination) apply(q map[string]any) {
	q["page"] = p.Page
	q["perPage"] = p.PerPage
}

// GetOrderOpts getOrder 的可选参数
type GetOrderOpts struct {
	NetworkID *int
}

// GetOrdersOpts getOrders 的过滤条件，全部可选
type GetOrdersOpts struct {
	MakerAssetProxyID   types.HexBytes
	TakerAssetProxyID   types.HexBytes
	MakerAssetAddress   *types.Address
	TakerAssetAddress   *types.Address
	ExchangeAddress     *types.Address
	SenderAddress       *types.Address
	MakerAssetData      types.HexBytes
	TakerAssetData      types.HexBytes
	TraderAssetData     types.HexBytes
	MakerAddress        *types.Address
	TakerAddress        *types.Address
	TraderAddress       *types.Address
	FeeRecipientAddress *types.Address
	NetworkID           *int
	Pagination
}

func (o *GetOrdersOpts) query() map[string]any {
	if o == nil {
		return nil
	}
	q := map[string]any{
		"makerAssetProxyId":   o.MakerAssetProxyID,
		"takerAssetProxyId":   o.TakerAssetProxyID,
		"makerAssetAddress":   o.MakerAssetAddress,
		"takerAssetAddress":   o.TakerAssetAddress,
		"exchangeAddress":     o.ExchangeAddress,
		"senderAddress":       o.SenderAddress,
		"makerAssetData":      o.MakerAssetData,
		"takerAssetData":      o.TakerAssetData,
		"traderAssetData":     o.TraderAssetData,
		"makerAddress":        o.MakerAddress,
		"takerAddress":        o.TakerAddress,
		"traderAddress":       o.TraderAddress,
		"feeRecipientAddress": o.FeeRecipientAddress,
		"networkId":           o.NetworkID,
	}
	o.Pagination.apply(q)
	return q
}

// GetAssetPairsOpts getAssetPairs 的可选参数
type GetAssetPairsOpts struct {
	AssetDataA types.HexBytes
	AssetDataB types.HexBytes
	NetworkID  *int
	Pagination
}

// GetOrderbookOpts getOrderbook 的可选参数
type GetOrderbookOpts struct {
	NetworkID *int
	Pagination
}

// GetOrderConfigOpts getOrderConfig 的可选参数
type GetOrderConfigOpts struct {
	NetworkID *int
}

// GetFeeRecipientsOpts getFeeRecipients 的可选参数
type GetFeeRecipientsOpts struct {
	NetworkID *int
	Pagination
}

// PostOrderOpts postOrder 的可选参数
type PostOrderOpts struct {
	NetworkID *int
}

func networkQuery(networkID *int) map[string]any {
	return map[string]any{"networkId": networkID}
}

// GetOrder 按 hash 查询单个订单
func (a *DefaultAPI) GetOrder(ctx context.Context, orderHash string, opts *GetOrderOpts) (*types.OrderRecord, error) {
	out, _, err := a.GetOrderWithHTTPInfo(ctx, orderHash, opts)
	return out, err
}

func (a *DefaultAPI) GetOrderWithHTTPInfo(ctx context.Context, orderHash string, opts *GetOrderOpts) (*types.OrderRecord, *Response, error) {
	if orderHash == "" {
		return nil, nil, errors.Wrap(ErrMissingParameter, "getOrder: orderHash")
	}
	if opts == nil {
		opts = &GetOrderOpts{}
	}
	req := &Request{
		PathParams:  map[string]string{"orderHash": orderHash},
		QueryParams: networkQuery(opts.NetworkID),
	}
	return call[types.OrderRecord](ctx, a.client, OpGetOrder, req)
}

// GetOrders 按条件分页查询订单
func (a *DefaultAPI) GetOrders(ctx context.Context, opts *GetOrdersOpts) (*types.OrdersResponse, error) {
	out, _, err := a.GetOrdersWithHTTPInfo(ctx, opts)
	return out, err
}

func (a *DefaultAPI) GetOrdersWithHTTPInfo(ctx context.Context, opts *GetOrdersOpts) (*types.OrdersResponse, *Response, error) {
	req := &Request{QueryParams: opts.query()}
	return call[types.OrdersResponse](ctx, a.client, OpGetOrders, req)
}

// GetAssetPairs 查询 relayer 支持的交易对
func (a *DefaultAPI) GetAssetPairs(ctx context.Context, opts *GetAssetPairsOpts) (*types.AssetPairsResponse, error) {
	out, _, err := a.GetAssetPairsWithHTTPInfo(ctx, opts)
	return out, err
}

func (a *DefaultAPI) GetAssetPairsWithHTTPInfo(ctx context.Context, opts *GetAssetPairsOpts) (*types.AssetPairsResponse, *Response, error) {
	if opts == nil {
		opts = &GetAssetPairsOpts{}
	}
	q := map[string]any{
		"assetDataA": opts.AssetDataA,
		"assetDataB": opts.AssetDataB,
		"networkId":  opts.NetworkID,
	}
	opts.Pagination.apply(q)
	return call[types.AssetPairsResponse](ctx, a.client, OpGetAssetPairs, &Request{QueryParams: q})
}

// GetOrderbook 查询某个交易对的买卖盘
func (a *DefaultAPI) GetOrderbook(ctx context.Context, baseAssetData, quoteAssetData types.HexBytes, opts *GetOrderbookOpts) (*types.OrderbookResponse, error) {
	out, _, err := a.GetOrderbookWithHTTPInfo(ctx, baseAssetData, quoteAssetData, opts)
	return out, err
}

func (a *DefaultAPI) GetOrderbookWithHTTPInfo(ctx context.Context, baseAssetData, quoteAssetData types.HexBytes, opts *GetOrderbookOpts) (*types.OrderbookResponse, *Response, error) {
	if len(baseAssetData) == 0 {
		return nil, nil, errors.Wrap(ErrMissingParameter, "getOrderbook: baseAssetData")
	}
	if len(quoteAssetData) == 0 {
		return nil, nil, errors.Wrap(ErrMissingParameter, "getOrderbook: quoteAssetData")
	}
	if opts == nil {
		opts = &GetOrderbookOpts{}
	}
	q := map[string]any{
		"baseAssetData":  baseAssetData,
		"quoteAssetData": quoteAssetData,
		"networkId":      opts.NetworkID,
	}
	opts.Pagination.apply(q)
	return call[types.OrderbookResponse](ctx, a.client, OpGetOrderbook, &Request{QueryParams: q})
}

// GetOrderConfig 询问 relayer 对该订单要求的费用和地址
func (a *DefaultAPI) GetOrderConfig(ctx context.Context, payload *types.OrderConfigPayload, opts *GetOrderConfigOpts) (*types.OrderConfigResponse, error) {
	out, _, err := a.GetOrderConfigWithHTTPInfo(ctx, payload, opts)
	return out, err
}

func (a *DefaultAPI) GetOrderConfigWithHTTPInfo(ctx context.Context, payload *types.OrderConfigPayload, opts *GetOrderConfigOpts) (*types.OrderConfigResponse, *Response, error) {
	if payload == nil {
		return nil, nil, errors.Wrap(ErrMissingParameter, "getOrderConfig: body")
	}
	if opts == nil {
		opts = &GetOrderConfigOpts{}
	}
	req := &Request{QueryParams: networkQuery(opts.NetworkID), Body: payload}
	return call[types.OrderConfigResponse](ctx, a.client, OpGetOrderConfig, req)
}

// GetFeeRecipients 查询 relayer 使用的 fee recipient 地址
func (a *DefaultAPI) GetFeeRecipients(ctx context.Context, opts *GetFeeRecipientsOpts) (*types.FeeRecipientsResponse, error) {
	out, _, err := a.GetFeeRecipientsWithHTTPInfo(ctx, opts)
	return out, err
}

func (a *DefaultAPI) GetFeeRecipientsWithHTTPInfo(ctx context.Context, opts *GetFeeRecipientsOpts) (*types.FeeRecipientsResponse, *Response, error) {
	if opts == nil {
		opts = &GetFeeRecipientsOpts{}
	}
	q := networkQuery(opts.NetworkID)
	opts.Pagination.apply(q)
	return call[types.FeeRecipientsResponse](ctx, a.client, OpGetFeeRecipients, &Request{QueryParams: q})
}

// PostOrder 提交已签名订单；成功时 relayer 返回空响应体
func (a *DefaultAPI) PostOrder(ctx context.Context, order *types.SignedOrder, opts *PostOrderOpts) error {
	_, err := a.PostOrderWithHTTPInfo(ctx, order, opts)
	return err
}

func (a *DefaultAPI) PostOrderWithHTTPInfo(ctx context.Context, order *types.SignedOrder, opts *PostOrderOpts) (*Response, error) {
	if order == nil {
		return nil, errors.Wrap(ErrMissingParameter, "postOrder: body")
	}
	if opts == nil {
		opts = &PostOrderOpts{}
	}
	req := &Request{QueryParams: networkQuery(opts.NetworkID), Body: order}
	return a.client.CallAPI(ctx, OpPostOrder, req, nil)
}

func call[T any](ctx context.Context, c *APIClient, op Operation, req *Request) (*T, *Response, error) {
	out := new(T)
	resp, err := c.CallAPI(ctx, op, req, out)
	if err != nil {
		return nil, resp, err
	}
	return out, resp, nil
}
