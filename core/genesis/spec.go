package genesis

import (
	"bytes"
	"fmt"
	"math/big"
	"os"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"gopkg.in/yaml.v3"

	"certchain/crypto"
	"certchain/native/certificate"
)

// GenesisSpec is the YAML document that seeds a fresh ledger.
type GenesisSpec struct {
	Accounts         []AccountSpec `yaml:"accounts"`
	Tokens           []TokenSpec   `yaml:"tokens"`
	Roles            RolesSpec     `yaml:"roles"`
	ExpirationPeriod uint64        `yaml:"expirationPeriod,omitempty"`
	DefaultRoyalty   *RoyaltySpec  `yaml:"defaultRoyalty,omitempty"`

	hash common.Hash
}

// AccountSpec registers an account and optionally funds it with native
// currency.
type AccountSpec struct {
	Address string `yaml:"address"`
	Kind    string `yaml:"kind,omitempty"`
	Label   string `yaml:"label,omitempty"`
	Balance string `yaml:"balance,omitempty"`

	addr    common.Address
	balance *big.Int
}

// TokenSpec deploys a fungible token with its initial allocation.
type TokenSpec struct {
	Address  string            `yaml:"address"`
	Name     string            `yaml:"name"`
	Symbol   string            `yaml:"symbol"`
	Decimals uint8             `yaml:"decimals"`
	Minter   string            `yaml:"minter,omitempty"`
	Alloc    map[string]string `yaml:"alloc,omitempty"`

	addr   common.Address
	minter common.Address
	alloc  []allocation
}

type allocation struct {
	holder common.Address
	amount *big.Int
}

// RolesSpec seeds the collection authorities.
type RolesSpec struct {
	Owner    string `yaml:"owner"`
	Admin    string `yaml:"admin,omitempty"`
	Verifier string `yaml:"verifier,omitempty"`

	roles certificate.Roles
}

// RoyaltySpec seeds the collection default royalty.
type RoyaltySpec struct {
	Receiver string `yaml:"receiver"`
	Bps      uint64 `yaml:"bps"`

	receiver common.Address
}

// LoadGenesisSpec reads and validates a genesis document.
func LoadGenesisSpec(path string) (*GenesisSpec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	spec, err := ParseGenesisSpec(raw)
	if err != nil {
		return nil, fmt.Errorf("genesis spec %q: %w", path, err)
	}
	return spec, nil
}

// ParseGenesisSpec decodes a YAML genesis document. Unknown fields are
// rejected.
func ParseGenesisSpec(raw []byte) (*GenesisSpec, error) {
	var spec GenesisSpec
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("invalid: %w", err)
	}
	spec.hash = ethcrypto.Keccak256Hash(raw)
	return &spec, nil
}

// Hash identifies the document the spec was parsed from.
func (s *GenesisSpec) Hash() common.Hash { return s.hash }

func parseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount %q must not be negative", raw)
	}
	return amount, nil
}

func parseOptionalAddress(raw string) (common.Address, error) {
	if strings.TrimSpace(raw) == "" {
		return common.Address{}, nil
	}
	return crypto.ParseAddress(raw)
}

func (s *GenesisSpec) validate() error {
	seen := make(map[common.Address]struct{}, len(s.Accounts))
	for i := range s.Accounts {
		acct := &s.Accounts[i]
		addr, err := crypto.ParseAddress(acct.Address)
		if err != nil {
			return fmt.Errorf("accounts[%d]: %w", i, err)
		}
		if _, dup := seen[addr]; dup {
			return fmt.Errorf("accounts[%d]: duplicate address %s", i, addr.Hex())
		}
		seen[addr] = struct{}{}
		switch strings.ToLower(strings.TrimSpace(acct.Kind)) {
		case "", "external", "contract":
		default:
			return fmt.Errorf("accounts[%d]: unknown kind %q", i, acct.Kind)
		}
		balance, err := parseAmount(acct.Balance)
		if err != nil {
			return fmt.Errorf("accounts[%d]: %w", i, err)
		}
		acct.addr = addr
		acct.balance = balance
	}

	for i := range s.Tokens {
		token := &s.Tokens[i]
		addr, err := crypto.ParseAddress(token.Address)
		if err != nil {
			return fmt.Errorf("tokens[%d]: %w", i, err)
		}
		if strings.TrimSpace(token.Symbol) == "" {
			return fmt.Errorf("tokens[%d]: symbol required", i)
		}
		minter, err := parseOptionalAddress(token.Minter)
		if err != nil {
			return fmt.Errorf("tokens[%d]: minter: %w", i, err)
		}
		token.addr = addr
		token.minter = minter
		token.alloc = token.alloc[:0]
		for holder, rawAmount := range token.Alloc {
			holderAddr, err := crypto.ParseAddress(holder)
			if err != nil {
				return fmt.Errorf("tokens[%d]: alloc: %w", i, err)
			}
			amount, err := parseAmount(rawAmount)
			if err != nil {
				return fmt.Errorf("tokens[%d]: alloc %s: %w", i, holder, err)
			}
			token.alloc = append(token.alloc, allocation{holder: holderAddr, amount: amount})
		}
		if len(token.alloc) > 0 && token.minter == (common.Address{}) {
			return fmt.Errorf("tokens[%d]: alloc requires a minter", i)
		}
		sortAllocations(token.alloc)
	}

	owner, err := crypto.ParseAddress(s.Roles.Owner)
	if err != nil {
		return fmt.Errorf("roles.owner: %w", err)
	}
	admin, err := parseOptionalAddress(s.Roles.Admin)
	if err != nil {
		return fmt.Errorf("roles.admin: %w", err)
	}
	verifier, err := parseOptionalAddress(s.Roles.Verifier)
	if err != nil {
		return fmt.Errorf("roles.verifier: %w", err)
	}
	s.Roles.roles = certificate.Roles{Owner: owner, Admin: admin, Verifier: verifier}

	if s.DefaultRoyalty != nil {
		receiver, err := crypto.ParseAddress(s.DefaultRoyalty.Receiver)
		if err != nil {
			return fmt.Errorf("defaultRoyalty.receiver: %w", err)
		}
		if s.DefaultRoyalty.Bps > certificate.MaxRoyaltyBps {
			return fmt.Errorf("defaultRoyalty.bps must be <= %d", certificate.MaxRoyaltyBps)
		}
		s.DefaultRoyalty.receiver = receiver
	}
	return nil
}

func sortAllocations(alloc []allocation) {
	sort.Slice(alloc, func(i, j int) bool {
		return bytes.Compare(alloc[i].holder[:], alloc[j].holder[:]) < 0
	})
}
