package main

import (
	"fmt"
	"os"
	"strings"

	"certchain/crypto"
	"certchain/native/certificate"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// signingRequest is the YAML document describing one verifier authorisation.
// Exactly one of the payload blocks must be present.
type signingRequest struct {
	Collection string                  `yaml:"collection"`
	Mint       *certificate.MintFields `yaml:"mint,omitempty"`
	URI        *uriRequest             `yaml:"uri,omitempty"`
	Status     *statusRequest          `yaml:"status,omitempty"`
	Type       *typeRequest            `yaml:"type,omitempty"`
}

type uriRequest struct {
	TokenID  uint64 `yaml:"tokenId"`
	Revision uint64 `yaml:"revision"`
	URI      string `yaml:"uri"`
}

type statusRequest struct {
	TokenID  uint64 `yaml:"tokenId"`
	Revision uint64 `yaml:"revision"`
	Active   bool   `yaml:"active"`
}

type typeRequest struct {
	TokenID  uint64 `yaml:"tokenId"`
	Revision uint64 `yaml:"revision"`
	Type     string `yaml:"type"`
}

func loadRequest(path string) (*signingRequest, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("request file required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}
	var req signingRequest
	if err := yaml.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	return &req, nil
}

// digest returns the payload digest bound to the request's collection and a
// short label naming the payload kind.
func (r *signingRequest) digest() (common.Hash, string, error) {
	collection, err := crypto.ParseAddress(r.Collection)
	if err != nil {
		return common.Hash{}, "", fmt.Errorf("collection: %w", err)
	}
	blocks := 0
	for _, present := range []bool{r.Mint != nil, r.URI != nil, r.Status != nil, r.Type != nil} {
		if present {
			blocks++
		}
	}
	if blocks != 1 {
		return common.Hash{}, "", fmt.Errorf("request must contain exactly one of mint, uri, status or type")
	}

	switch {
	case r.Mint != nil:
		payload, err := r.Mint.Payload()
		if err != nil {
			return common.Hash{}, "", fmt.Errorf("mint.%w", err)
		}
		hash, err := payload.Digest(collection)
		return hash, "mint", err
	case r.URI != nil:
		payload := certificate.TokenURIPayload{TokenID: r.URI.TokenID, Revision: r.URI.Revision, URI: r.URI.URI}
		hash, err := payload.Digest(collection)
		return hash, "uri", err
	case r.Status != nil:
		payload := certificate.StatusPayload{TokenID: r.Status.TokenID, Revision: r.Status.Revision, Active: r.Status.Active}
		hash, err := payload.Digest(collection)
		return hash, "status", err
	default:
		typ, err := certificate.ParseTokenType(r.Type.Type)
		if err != nil {
			return common.Hash{}, "", fmt.Errorf("type.type: %w", err)
		}
		payload := certificate.TypePayload{TokenID: r.Type.TokenID, Revision: r.Type.Revision, Type: typ}
		hash, err := payload.Digest(collection)
		return hash, "type", err
	}
}
