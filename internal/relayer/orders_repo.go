package relayer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/betbot/gosra/sra/types"
)

// orderHash 订单在本 relayer 中的主键：签名订单规范 JSON 的 keccak256
// 注意这不是 0x 协议的 EIP-712 订单哈希
func orderHash(o *types.SignedOrder) (string, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(crypto.Keccak256(data)), nil
}

// orderFilter GET /orders 支持的过滤条件，空串表示不过滤
type orderFilter struct {
	MakerAssetProxyID   string
	TakerAssetProxyID   string
	MakerAssetAddress   string
	TakerAssetAddress   string
	ExchangeAddress     string
	SenderAddress       string
	MakerAssetData      string
	TakerAssetData      string
	TraderAssetData     string
	MakerAddress        string
	TakerAddress        string
	TraderAddress       string
	FeeRecipientAddress string
}

// where 生成 WHERE 子句；所有值在写入前已统一小写
func (f orderFilter) where() (string, []any) {
	var conds []string
	var args []any
	eq := func(col, v string) {
		if v != "" {
			conds = append(conds, col+"=?")
			args = append(args, v)
		}
	}
	eq("maker_asset_data", f.MakerAssetData)
	eq("taker_asset_data", f.TakerAssetData)
	eq("exchange_address", f.ExchangeAddress)
	eq("sender_address", f.SenderAddress)
	eq("maker_address", f.MakerAddress)
	eq("taker_address", f.TakerAddress)
	eq("fee_recipient_address", f.FeeRecipientAddress)

	if f.TraderAssetData != "" {
		conds = append(conds, "(maker_asset_data=? OR taker_asset_data=?)")
		args = append(args, f.TraderAssetData, f.TraderAssetData)
	}
	if f.TraderAddress != "" {
		conds = append(conds, "(maker_address=? OR taker_address=?)")
		args = append(args, f.TraderAddress, f.TraderAddress)
	}
	if f.MakerAssetProxyID != "" {
		conds = append(conds, "substr(maker_asset_data,1,10)=?")
		args = append(args, f.MakerAssetProxyID)
	}
	if f.TakerAssetProxyID != "" {
		conds = append(conds, "substr(taker_asset_data,1,10)=?")
		args = append(args, f.TakerAssetProxyID)
	}
	// ERC20 asset data: 0x + 4 字节 proxy id + 12 字节补零 + 20 字节地址
	if f.MakerAssetAddress != "" {
		conds = append(conds, "substr(maker_asset_data,35,40)=?")
		args = append(args, strings.TrimPrefix(f.MakerAssetAddress, "0x"))
	}
	if f.TakerAssetAddress != "" {
		conds = append(conds, "substr(taker_asset_data,35,40)=?")
		args = append(args, strings.TrimPrefix(f.TakerAssetAddress, "0x"))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// insertOrder 写入订单；重复提交同一订单不报错
func (s *Server) insertOrder(ctx context.Context, hash string, o *types.SignedOrder) (bool, error) {
	body, err := json.Marshal(o)
	if err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, `
INSERT OR IGNORE INTO orders (hash,maker_address,taker_address,sender_address,exchange_address,fee_recipient_address,maker_asset_data,taker_asset_data,order_json,created_at)
VALUES (?,?,?,?,?,?,?,?,?,?)
`, hash, o.MakerAddress.String(), o.TakerAddress.String(), o.SenderAddress.String(), o.ExchangeAddress.String(),
		o.FeeRecipientAddress.String(), o.MakerAssetData.String(), o.TakerAssetData.String(), string(body),
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *Server) getOrder(ctx context.Context, hash string) (*types.OrderRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT hash,order_json FROM orders WHERE hash=?`, strings.ToLower(hash))
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// listOrders 按写入顺序返回一页订单和满足条件的总数
func (s *Server) listOrders(ctx context.Context, f orderFilter, page, perPage int) ([]types.OrderRecord, int, error) {
	where, args := f.where()

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT hash,order_json FROM orders` + where + ` ORDER BY seq LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, q, append(args, perPage, (page-1)*perPage)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []types.OrderRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *rec)
	}
	return out, total, rows.Err()
}

// allOrders 不分页，供盘口排序使用
func (s *Server) allOrders(ctx context.Context, f orderFilter) ([]types.OrderRecord, error) {
	where, args := f.where()
	rows, err := s.db.QueryContext(ctx, `SELECT hash,order_json FROM orders`+where+` ORDER BY seq`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.OrderRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// assetPairKeys 已有订单中出现过的 (maker, taker) 资产组合
func (s *Server) assetPairKeys(ctx context.Context) ([][2]string, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT maker_asset_data, taker_asset_data FROM orders
GROUP BY maker_asset_data, taker_asset_data ORDER BY MIN(seq)
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][2]string
	for rows.Next() {
		var k [2]string
		if err := rows.Scan(&k[0], &k[1]); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*types.OrderRecord, error) {
	var hash, body string
	if err := row.Scan(&hash, &body); err != nil {
		return nil, err
	}
	var o types.SignedOrder
	if err := json.Unmarshal([]byte(body), &o); err != nil {
		return nil, fmt.Errorf("order %s: %w", hash, err)
	}
	return &types.OrderRecord{Order: o, MetaData: orderMetaData(hash)}, nil
}

func orderMetaData(hash string) types.Any {
	return types.Any{Kind: types.KindObject, Object: map[string]types.Any{
		"orderHash": {Kind: types.KindString, String: hash},
	}}
}
