package enricher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ERC-20 read-only methods used for enrichment
const erc20ReadABI = `[
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],
	 "name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"}
]`

// Some early tokens return symbol and name as bytes32.
const erc20LegacyABI = `[
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"bytes32"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"bytes32"}],"type":"function"}
]`

var (
	erc20Read   = mustParseABI(erc20ReadABI)
	erc20Legacy = mustParseABI(erc20LegacyABI)

	errEmptyResult = errors.New("empty result")
)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("enricher: invalid ABI: %v", err))
	}
	return parsed
}

// ChainReader is the on-chain read capability. *ethclient.Client satisfies it.
type ChainReader interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

func call(ctx context.Context, reader ChainReader, contract common.Address, method string, args ...interface{}) ([]byte, error) {
	data, err := erc20Read.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	result, err := reader.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%s: %w", method, errEmptyResult)
	}
	return result, nil
}

// readText reads a string-valued method (symbol or name), falling back to
// the bytes32 layout.
func readText(ctx context.Context, reader ChainReader, token common.Address, method string) (string, error) {
	result, err := call(ctx, reader, token, method)
	if err != nil {
		return "", err
	}

	var s string
	if err := erc20Read.UnpackIntoInterface(&s, method, result); err == nil && s != "" {
		return s, nil
	}

	var raw [32]byte
	if err := erc20Legacy.UnpackIntoInterface(&raw, method, result); err != nil {
		return "", fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	trimmed := bytes.TrimSpace(bytes.Trim(raw[:], "\x00"))
	if len(trimmed) == 0 || !utf8.Valid(trimmed) {
		return "", fmt.Errorf("failed to unpack %s: not a string", method)
	}
	return string(trimmed), nil
}

func readDecimals(ctx context.Context, reader ChainReader, token common.Address) (int, error) {
	result, err := call(ctx, reader, token, "decimals")
	if err != nil {
		return 0, err
	}
	var decimals uint8
	if err := erc20Read.UnpackIntoInterface(&decimals, "decimals", result); err != nil {
		return 0, fmt.Errorf("failed to unpack decimals: %w", err)
	}
	return int(decimals), nil
}

func readAllowance(ctx context.Context, reader ChainReader, key AllowanceKey) (*big.Int, error) {
	result, err := call(ctx, reader, key.Token, "allowance", key.Owner, key.Spender)
	if err != nil {
		return nil, err
	}
	var allowance *big.Int
	if err := erc20Read.UnpackIntoInterface(&allowance, "allowance", result); err != nil {
		return nil, fmt.Errorf("failed to unpack allowance: %w", err)
	}
	if allowance == nil {
		allowance = new(big.Int)
	}
	return allowance, nil
}

func readIsContract(ctx context.Context, reader ChainReader, addr common.Address) (bool, error) {
	code, err := reader.CodeAt(ctx, addr, nil)
	if err != nil {
		return false, fmt.Errorf("failed to read code: %w", err)
	}
	return len(code) > 0, nil
}
