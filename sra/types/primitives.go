package types

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

// NullAddress 零地址，SRA 中表示"任意 taker / sender"
const NullAddress Address = "0x0000000000000000000000000000000000000000"

// Address 小写十六进制以太坊地址
type Address string

// NewAddress 由 go-ethereum 地址构造（统一小写）
func NewAddress(a common.Address) Address {
	return Address(strings.ToLower(a.Hex()))
}

// ParseAddress 解析并规范化地址字符串
func ParseAddress(s string) (Address, error) {
	if !checkFormat(FormatAddress, s) {
		return "", fmt.Errorf("invalid address %q", s)
	}
	return Address(strings.ToLower(s)), nil
}

// Common 转为 go-ethereum 地址
func (a Address) Common() common.Address {
	return common.HexToAddress(string(a))
}

func (a Address) String() string {
	return string(a)
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(string(a))), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Amount 无符号大整数，线上编码为十进制字符串以避免精度丢失
type Amount string

// NewAmount 由 big.Int 构造
func NewAmount(v *big.Int) Amount {
	if v == nil {
		return "0"
	}
	return Amount(v.String())
}

// AmountFromUint64 便捷构造
func AmountFromUint64(v uint64) Amount {
	return NewAmount(new(big.Int).SetUint64(v))
}

// ParseAmount 校验十进制字符串
func ParseAmount(s string) (Amount, error) {
	if !checkFormat(FormatNumeric, s) {
		return "", fmt.Errorf("invalid amount %q: expected decimal digits", s)
	}
	return Amount(s), nil
}

// BigInt 转为 big.Int
func (a Amount) BigInt() (*big.Int, error) {
	v, ok := new(big.Int).SetString(string(a), 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", string(a))
	}
	return v, nil
}

// Decimal 转为 decimal.Decimal（按整数处理）
func (a Amount) Decimal() (decimal.Decimal, error) {
	return decimal.NewFromString(string(a))
}

func (a Amount) String() string {
	return string(a)
}

func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a), nil
}

func (a *Amount) UnmarshalText(text []byte) error {
	parsed, err := ParseAmount(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// HexBytes 0x 前缀的十六进制字节串（asset data、签名）
type HexBytes = hexutil.Bytes

// MustHexBytes 解析十六进制字符串，失败时 panic（用于常量与测试）
func MustHexBytes(s string) HexBytes {
	return hexutil.MustDecode(s)
}
