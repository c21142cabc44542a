package relayer

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"math/big"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/betbot/gosra/sra/types"
)

// maxAmount 2^256-1，asset pair 的默认上限
var maxAmount = types.NewAmount(new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1)))

const defaultPrecision = 18

func writeError(c *gin.Context, status int, er *types.ErrorResponse) {
	c.AbortWithStatusJSON(status, er)
}

func invalidParam(field string, code int, reason string) *types.ErrorResponse {
	return &types.ErrorResponse{
		Code:             types.ErrorCodeValidationFailed,
		Reason:           "Validation failed",
		ValidationErrors: []types.ValidationError{{Field: field, Code: code, Reason: reason}},
	}
}

// checkNetwork networkId 缺省时视为本 relayer 的网络
func (s *Server) checkNetwork(c *gin.Context) bool {
	raw := c.Query("networkId")
	if raw == "" {
		return true
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		writeError(c, http.StatusBadRequest, invalidParam("networkId", types.ValidationCodeIncorrectFormat, "must be an integer"))
		return false
	}
	if id != s.cfg.NetworkID {
		writeError(c, http.StatusBadRequest, invalidParam("networkId", types.ValidationCodeUnsupportedOption,
			"unsupported network id "+raw))
		return false
	}
	return true
}

// paging 解析 page / perPage
func paging(c *gin.Context) (int, int, bool) {
	parse := func(name string, def, limit int) (int, bool) {
		raw := c.Query(name)
		if raw == "" {
			return def, true
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > limit {
			writeError(c, http.StatusBadRequest, invalidParam(name, types.ValidationCodeValueOutOfRange,
				"must be an integer between 1 and "+strconv.Itoa(limit)))
			return 0, false
		}
		return v, true
	}
	page, ok := parse("page", types.DefaultPage, math.MaxInt32)
	if !ok {
		return 0, 0, false
	}
	perPage, ok := parse("perPage", types.DefaultPerPage, MaxPerPage)
	if !ok {
		return 0, 0, false
	}
	return page, perPage, true
}

func paginate[T any](items []T, page, perPage int) types.PaginatedCollection[T] {
	out := types.PaginatedCollection[T]{Total: len(items), Page: page, PerPage: perPage, Records: []T{}}
	start := (page - 1) * perPage
	if start >= len(items) || start < 0 {
		return out
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	out.Records = items[start:end]
	return out
}

// queryHex 读取并规范化一个十六进制查询参数
func queryHex(c *gin.Context, name string) (string, bool) {
	raw := c.Query(name)
	if raw == "" {
		return "", true
	}
	b, err := hexutil.Decode(raw)
	if err != nil {
		writeError(c, http.StatusBadRequest, invalidParam(name, types.ValidationCodeIncorrectFormat, err.Error()))
		return "", false
	}
	return hexutil.Encode(b), true
}

func queryAddress(c *gin.Context, name string) (string, bool) {
	raw := c.Query(name)
	if raw == "" {
		return "", true
	}
	addr, err := types.ParseAddress(raw)
	if err != nil {
		writeError(c, http.StatusBadRequest, invalidParam(name, types.ValidationCodeInvalidAddress, err.Error()))
		return "", false
	}
	return addr.String(), true
}

// readBody 按 schema 解码请求体，失败时写 400
func readBody(c *gin.Context, out any) bool {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, http.StatusBadRequest, &types.ErrorResponse{Code: types.ErrorCodeMalformedJSON, Reason: "Malformed JSON"})
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		var de *types.DecodeError
		if errors.As(err, &de) {
			if de.Expected == "valid JSON" {
				writeError(c, http.StatusBadRequest, &types.ErrorResponse{Code: types.ErrorCodeMalformedJSON, Reason: "Malformed JSON"})
				return false
			}
			writeError(c, http.StatusBadRequest, types.ValidationFailed(de))
			return false
		}
		writeError(c, http.StatusBadRequest, &types.ErrorResponse{Code: types.ErrorCodeMalformedJSON, Reason: err.Error()})
		return false
	}
	return true
}

// SRA 只为校验、格式和限流定义了错误码，其他错误以 HTTP 状态码作为 code
func notFound(reason string) *types.ErrorResponse {
	return &types.ErrorResponse{Code: http.StatusNotFound, Reason: reason}
}

// internalError 记录具体原因，响应体不暴露内部错误
func (s *Server) internalError(c *gin.Context, err error) {
	s.log.WithError(err).Errorf("%s %s", c.Request.Method, c.Request.URL.Path)
	c.AbortWithStatusJSON(http.StatusInternalServerError, &types.ErrorResponse{
		Code:   http.StatusInternalServerError,
		Reason: "Internal error",
	})
}

// GET /orders
func (s *Server) handleOrdersList(c *gin.Context) {
	if !s.checkNetwork(c) {
		return
	}
	page, perPage, ok := paging(c)
	if !ok {
		return
	}

	var f orderFilter
	hexParams := map[string]*string{
		"makerAssetProxyId": &f.MakerAssetProxyID,
		"takerAssetProxyId": &f.TakerAssetProxyID,
		"makerAssetData":    &f.MakerAssetData,
		"takerAssetData":    &f.TakerAssetData,
		"traderAssetData":   &f.TraderAssetData,
	}
	for name, dst := range hexParams {
		if *dst, ok = queryHex(c, name); !ok {
			return
		}
	}
	addrParams := map[string]*string{
		"makerAssetAddress":   &f.MakerAssetAddress,
		"takerAssetAddress":   &f.TakerAssetAddress,
		"exchangeAddress":     &f.ExchangeAddress,
		"senderAddress":       &f.SenderAddress,
		"makerAddress":        &f.MakerAddress,
		"takerAddress":        &f.TakerAddress,
		"traderAddress":       &f.TraderAddress,
		"feeRecipientAddress": &f.FeeRecipientAddress,
	}
	for name, dst := range addrParams {
		if *dst, ok = queryAddress(c, name); !ok {
			return
		}
	}

	records, total, err := s.listOrders(c.Request.Context(), f, page, perPage)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.OrdersResponse{PaginatedCollection: types.PaginatedCollection[types.OrderRecord]{
		Total: total, Page: page, PerPage: perPage, Records: records,
	}})
}

// GET /orders/:orderHash
func (s *Server) handleOrderGet(c *gin.Context) {
	if !s.checkNetwork(c) {
		return
	}
	hash := c.Param("orderHash")
	rec, err := s.getOrder(c.Request.Context(), hash)
	if err != nil {
		s.internalError(c, err)
		return
	}
	if rec == nil {
		writeError(c, http.StatusNotFound, notFound("Order not found: "+hash))
		return
	}
	c.JSON(http.StatusOK, rec)
}

// POST /orders，成功时返回 200 空响应体
func (s *Server) handleOrderPost(c *gin.Context) {
	if !s.checkNetwork(c) {
		return
	}
	var order types.SignedOrder
	if !readBody(c, &order) {
		return
	}
	hash, err := orderHash(&order)
	if err != nil {
		s.internalError(c, err)
		return
	}
	inserted, err := s.insertOrder(c.Request.Context(), hash, &order)
	if err != nil {
		s.internalError(c, err)
		return
	}
	if inserted {
		s.log.Infof("order added: %s", hash)
		s.hub.publish(types.OrderRecord{Order: order, MetaData: orderMetaData(hash)})
	}
	c.Status(http.StatusOK)
}

// GET /asset_pairs
func (s *Server) handleAssetPairs(c *gin.Context) {
	if !s.checkNetwork(c) {
		return
	}
	page, perPage, ok := paging(c)
	if !ok {
		return
	}
	assetA, ok := queryHex(c, "assetDataA")
	if !ok {
		return
	}
	assetB, ok := queryHex(c, "assetDataB")
	if !ok {
		return
	}

	keys, err := s.assetPairKeys(c.Request.Context())
	if err != nil {
		s.internalError(c, err)
		return
	}

	// (maker, taker) 与 (taker, maker) 是同一个交易对
	seen := make(map[[2]string]bool)
	pairs := []types.AssetPair{}
	for _, k := range keys {
		a, b := k[0], k[1]
		if b < a {
			a, b = b, a
		}
		if seen[[2]string{a, b}] {
			continue
		}
		seen[[2]string{a, b}] = true
		if assetA != "" && a != assetA && b != assetA {
			continue
		}
		if assetB != "" && a != assetB && b != assetB {
			continue
		}
		pairs = append(pairs, types.AssetPair{AssetDataA: tradeInfo(a), AssetDataB: tradeInfo(b)})
	}
	c.JSON(http.StatusOK, types.AssetPairsResponse{PaginatedCollection: paginate(pairs, page, perPage)})
}

func tradeInfo(assetData string) types.AssetDataTradeInfo {
	lower, upper, precision := types.Amount("0"), maxAmount, defaultPrecision
	return types.AssetDataTradeInfo{
		AssetData: hexutil.MustDecode(assetData),
		MinAmount: &lower,
		MaxAmount: &upper,
		Precision: &precision,
	}
}

// GET /orderbook
// bids: maker 给出 quote 换 base，按价格从高到低；asks: maker 给出 base 换 quote，按价格从低到高
// 价格统一表示为每单位 base 的 quote 数量
func (s *Server) handleOrderbook(c *gin.Context) {
	if !s.checkNetwork(c) {
		return
	}
	page, perPage, ok := paging(c)
	if !ok {
		return
	}
	base, ok := queryHex(c, "baseAssetData")
	if !ok {
		return
	}
	quote, ok := queryHex(c, "quoteAssetData")
	if !ok {
		return
	}
	if base == "" || quote == "" {
		field := "baseAssetData"
		if base != "" {
			field = "quoteAssetData"
		}
		writeError(c, http.StatusBadRequest, invalidParam(field, types.ValidationCodeRequiredField, "requires property"))
		return
	}

	ctx := c.Request.Context()
	bids, err := s.allOrders(ctx, orderFilter{MakerAssetData: quote, TakerAssetData: base})
	if err != nil {
		s.internalError(c, err)
		return
	}
	asks, err := s.allOrders(ctx, orderFilter{MakerAssetData: base, TakerAssetData: quote})
	if err != nil {
		s.internalError(c, err)
		return
	}
	sortByPrice(bids, func(o *types.SignedOrder) (decimal.Decimal, decimal.Decimal) {
		return amountDecimal(o.MakerAssetAmount), amountDecimal(o.TakerAssetAmount)
	}, true)
	sortByPrice(asks, func(o *types.SignedOrder) (decimal.Decimal, decimal.Decimal) {
		return amountDecimal(o.TakerAssetAmount), amountDecimal(o.MakerAssetAmount)
	}, false)

	c.JSON(http.StatusOK, types.OrderbookResponse{
		Bids: types.OrdersResponse{PaginatedCollection: paginate(bids, page, perPage)},
		Asks: types.OrdersResponse{PaginatedCollection: paginate(asks, page, perPage)},
	})
}

// amountDecimal 已通过 schema 校验的金额不会解析失败
func amountDecimal(a types.Amount) decimal.Decimal {
	d, err := a.Decimal()
	if err != nil {
		return decimal.Zero
	}
	return d
}

// sortByPrice amounts 返回 (quote 数量, base 数量)；排序稳定，同价按写入顺序
func sortByPrice(records []types.OrderRecord, amounts func(*types.SignedOrder) (decimal.Decimal, decimal.Decimal), desc bool) {
	price := func(i int) decimal.Decimal {
		quoteAmt, baseAmt := amounts(&records[i].Order)
		if baseAmt.IsZero() {
			return decimal.Zero
		}
		return quoteAmt.DivRound(baseAmt, 36)
	}
	sort.SliceStable(records, func(i, j int) bool {
		pi, pj := price(i), price(j)
		if desc {
			return pi.GreaterThan(pj)
		}
		return pi.LessThan(pj)
	})
}

// POST /order_config
func (s *Server) handleOrderConfig(c *gin.Context) {
	if !s.checkNetwork(c) {
		return
	}
	var payload types.OrderConfigPayload
	if !readBody(c, &payload) {
		return
	}
	feeRecipient := types.NullAddress
	if len(s.cfg.FeeRecipients) > 0 {
		feeRecipient = s.cfg.FeeRecipients[0]
	}
	c.JSON(http.StatusOK, types.OrderConfigResponse{
		MakerFee:            "0",
		TakerFee:            "0",
		FeeRecipientAddress: feeRecipient,
		SenderAddress:       types.NullAddress,
	})
}

// GET /fee_recipients
func (s *Server) handleFeeRecipients(c *gin.Context) {
	if !s.checkNetwork(c) {
		return
	}
	page, perPage, ok := paging(c)
	if !ok {
		return
	}
	recipients := make([]types.Address, 0, len(s.cfg.FeeRecipients))
	for _, r := range s.cfg.FeeRecipients {
		recipients = append(recipients, types.Address(strings.ToLower(r.String())))
	}
	c.JSON(http.StatusOK, types.FeeRecipientsResponse{PaginatedCollection: paginate(recipients, page, perPage)})
}
