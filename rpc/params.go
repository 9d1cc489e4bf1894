package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"certchain/crypto"
	"certchain/native/certificate"
)

func invalidParams(format string, args ...interface{}) *RPCError {
	return &RPCError{Code: codeInvalidParams, Message: "invalid params", Data: fmt.Sprintf(format, args...)}
}

// decodeParams expects exactly one parameter object and rejects unknown
// fields.
func decodeParams(params []json.RawMessage, dst interface{}) error {
	if len(params) != 1 {
		return invalidParams("exactly one parameter object expected")
	}
	dec := json.NewDecoder(bytes.NewReader(params[0]))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return invalidParams("%v", err)
	}
	return nil
}

func parseAddress(field, raw string) (common.Address, error) {
	if strings.TrimSpace(raw) == "" {
		return common.Address{}, invalidParams("%s required", field)
	}
	addr, err := crypto.ParseAddress(raw)
	if err != nil {
		return common.Address{}, invalidParams("%s: %v", field, err)
	}
	return addr, nil
}

// parseAsset treats an empty value as the native currency.
func parseAsset(field, raw string) (common.Address, error) {
	if strings.TrimSpace(raw) == "" {
		return common.Address{}, nil
	}
	return parseAddress(field, raw)
}

func parseAmount(field, raw string) (*big.Int, error) {
	value, err := certificate.ParseAmount(raw)
	if err != nil {
		return nil, invalidParams("%s: %v", field, err)
	}
	return value, nil
}

func parseSignature(raw string) ([]byte, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, invalidParams("signature required")
	}
	sig, err := hexutil.Decode(strings.TrimSpace(raw))
	if err != nil {
		return nil, invalidParams("signature: %v", err)
	}
	return sig, nil
}

func mintPayload(fields *certificate.MintFields) (certificate.MintPayload, error) {
	payload, err := fields.Payload()
	if err != nil {
		return certificate.MintPayload{}, invalidParams("payload.%v", err)
	}
	return payload, nil
}
