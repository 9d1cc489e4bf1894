package rpc

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"certchain/core"
	"certchain/native/certificate"
)

type certMintParams struct {
	Payload   certificate.MintFields `json:"payload"`
	Signature string                 `json:"signature"`
	Value     string                 `json:"value,omitempty"`
}

type certIDParams struct {
	ID uint64 `json:"id"`
}

type certURIParams struct {
	ID        uint64 `json:"id"`
	URI       string `json:"uri"`
	Signature string `json:"signature"`
}

type certStatusParams struct {
	ID        uint64 `json:"id"`
	Active    bool   `json:"active"`
	Signature string `json:"signature"`
}

type certTypeParams struct {
	ID        uint64 `json:"id"`
	Type      string `json:"type"`
	Signature string `json:"signature"`
}

type certTransferParams struct {
	From string `json:"from,omitempty"`
	To   string `json:"to"`
	ID   uint64 `json:"id"`
}

type certApprovalParams struct {
	Owner    string `json:"owner,omitempty"`
	Operator string `json:"operator"`
	Approved bool   `json:"approved"`
}

type certBuyParams struct {
	ID    uint64 `json:"id"`
	Value string `json:"value,omitempty"`
}

type certEscrowParams struct {
	Asset       string `json:"asset,omitempty"`
	Beneficiary string `json:"beneficiary,omitempty"`
	To          string `json:"to,omitempty"`
	Amount      string `json:"amount,omitempty"`
}

type certRoleParams struct {
	Address string `json:"address"`
}

type certExpirationParams struct {
	Seconds uint64 `json:"seconds"`
}

type certRoyaltyParams struct {
	ID        uint64 `json:"id,omitempty"`
	Receiver  string `json:"receiver,omitempty"`
	Bps       uint64 `json:"bps,omitempty"`
	SalePrice string `json:"salePrice,omitempty"`
}

type certSignatureParams struct {
	Signature string `json:"signature"`
}

type certOwnerParams struct {
	Owner string `json:"owner"`
}

func (s *Server) registerCertificateMethods() {
	s.register("cert_mint", "certificate", true, s.certMint)
	s.register("cert_mintWithRoyalty", "certificate", true, s.certMintWithRoyalty)
	s.register("cert_setTokenURI", "certificate", true, s.certSetTokenURI)
	s.register("cert_setStatus", "certificate", true, s.certSetStatus)
	s.register("cert_setType", "certificate", true, s.certSetType)
	s.register("cert_transfer", "certificate", true, s.certTransfer)
	s.register("cert_transferFrom", "certificate", true, s.certTransferFrom)
	s.register("cert_setApprovalForAll", "certificate", true, s.certSetApprovalForAll)
	s.register("cert_buy", "certificate", true, s.certBuy)
	s.register("cert_donate", "certificate", true, s.certDonate)
	s.register("cert_claim", "certificate", true, s.certClaim)
	s.register("cert_withdraw", "certificate", true, s.certWithdraw)
	s.register("cert_setAdmin", "certificate", true, s.certSetAdmin)
	s.register("cert_setVerifier", "certificate", true, s.certSetVerifier)
	s.register("cert_setExpiration", "certificate", true, s.certSetExpiration)
	s.register("cert_setDefaultRoyalty", "certificate", true, s.certSetDefaultRoyalty)

	s.register("cert_token", "certificate", false, s.certToken)
	s.register("cert_ownerOf", "certificate", false, s.certOwnerOf)
	s.register("cert_tokenURI", "certificate", false, s.certTokenURI)
	s.register("cert_typeOf", "certificate", false, s.certTypeOf)
	s.register("cert_expirationOf", "certificate", false, s.certExpirationOf)
	s.register("cert_tokenIdOf", "certificate", false, s.certTokenIDOf)
	s.register("cert_balanceOf", "certificate", false, s.certBalanceOf)
	s.register("cert_isApprovedForAll", "certificate", false, s.certIsApprovedForAll)
	s.register("cert_royaltyInfo", "certificate", false, s.certRoyaltyInfo)
	s.register("cert_defaultRoyalty", "certificate", false, s.certDefaultRoyalty)
	s.register("cert_escrowBalance", "certificate", false, s.certEscrowBalance)
	s.register("cert_changeBalance", "certificate", false, s.certChangeBalance)
	s.register("cert_lastId", "certificate", false, s.certLastID)
	s.register("cert_roles", "certificate", false, s.certRoles)
	s.register("cert_expirationPeriod", "certificate", false, s.certExpirationPeriod)
	s.register("cert_mintDigest", "certificate", false, s.certMintDigest)
}

func (s *Server) mintRequest(c *call) (certificate.MintRequest, *big.Int, error) {
	var params certMintParams
	if err := decodeParams(c.params, &params); err != nil {
		return certificate.MintRequest{}, nil, err
	}
	payload, err := mintPayload(&params.Payload)
	if err != nil {
		return certificate.MintRequest{}, nil, err
	}
	sig, err := parseSignature(params.Signature)
	if err != nil {
		return certificate.MintRequest{}, nil, err
	}
	value, err := parseAmount("value", params.Value)
	if err != nil {
		return certificate.MintRequest{}, nil, err
	}
	return certificate.MintRequest{Payload: payload, Signature: sig}, value, nil
}

func (s *Server) certMint(ctx context.Context, c *call) (interface{}, error) {
	req, value, err := s.mintRequest(c)
	if err != nil {
		return nil, err
	}
	var minted *certificate.Token
	err = s.host.Execute(ctx, "cert_mint", func(l core.Ledger) error {
		var err error
		minted, err = l.Certificates.Mint(c.caller, req, value)
		return err
	})
	if err != nil {
		return nil, err
	}
	return formatToken(minted), nil
}

func (s *Server) certMintWithRoyalty(ctx context.Context, c *call) (interface{}, error) {
	req, value, err := s.mintRequest(c)
	if err != nil {
		return nil, err
	}
	var minted *certificate.Token
	err = s.host.Execute(ctx, "cert_mintWithRoyalty", func(l core.Ledger) error {
		var err error
		minted, err = l.Certificates.MintWithRoyalty(c.caller, req, value)
		return err
	})
	if err != nil {
		return nil, err
	}
	return formatToken(minted), nil
}

func (s *Server) certSetTokenURI(ctx context.Context, c *call) (interface{}, error) {
	var params certURIParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	sig, err := parseSignature(params.Signature)
	if err != nil {
		return nil, err
	}
	return s.execToken(ctx, "cert_setTokenURI", params.ID, func(l core.Ledger) error {
		return l.Certificates.SetTokenURI(params.ID, params.URI, sig)
	})
}

func (s *Server) certSetStatus(ctx context.Context, c *call) (interface{}, error) {
	var params certStatusParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	sig, err := parseSignature(params.Signature)
	if err != nil {
		return nil, err
	}
	return s.execToken(ctx, "cert_setStatus", params.ID, func(l core.Ledger) error {
		return l.Certificates.SetStatus(params.ID, params.Active, sig)
	})
}

func (s *Server) certSetType(ctx context.Context, c *call) (interface{}, error) {
	var params certTypeParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	typ, err := certificate.ParseTokenType(params.Type)
	if err != nil {
		return nil, invalidParams("type: unknown token type %q", params.Type)
	}
	sig, err := parseSignature(params.Signature)
	if err != nil {
		return nil, err
	}
	return s.execToken(ctx, "cert_setType", params.ID, func(l core.Ledger) error {
		return l.Certificates.SetType(params.ID, typ, sig)
	})
}

// execToken runs fn and returns the resulting certificate.
func (s *Server) execToken(ctx context.Context, op string, id uint64, fn func(core.Ledger) error) (interface{}, error) {
	var token *certificate.Token
	err := s.host.Execute(ctx, op, func(l core.Ledger) error {
		if err := fn(l); err != nil {
			return err
		}
		var err error
		token, err = l.Certificates.Token(id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return formatToken(token), nil
}

func (s *Server) certTransfer(ctx context.Context, c *call) (interface{}, error) {
	var params certTransferParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	to, err := parseAddress("to", params.To)
	if err != nil {
		return nil, err
	}
	return s.execToken(ctx, "cert_transfer", params.ID, func(l core.Ledger) error {
		return l.Certificates.Transfer(c.caller, to, params.ID)
	})
}

func (s *Server) certTransferFrom(ctx context.Context, c *call) (interface{}, error) {
	var params certTransferParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	from, err := parseAddress("from", params.From)
	if err != nil {
		return nil, err
	}
	to, err := parseAddress("to", params.To)
	if err != nil {
		return nil, err
	}
	return s.execToken(ctx, "cert_transferFrom", params.ID, func(l core.Ledger) error {
		return l.Certificates.TransferFrom(c.caller, from, to, params.ID)
	})
}

func (s *Server) certSetApprovalForAll(ctx context.Context, c *call) (interface{}, error) {
	var params certApprovalParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	operator, err := parseAddress("operator", params.Operator)
	if err != nil {
		return nil, err
	}
	err = s.host.Execute(ctx, "cert_setApprovalForAll", func(l core.Ledger) error {
		return l.Certificates.SetApprovalForAll(c.caller, operator, params.Approved)
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"owner": c.caller.Hex(), "operator": operator.Hex(), "approved": params.Approved}, nil
}

func (s *Server) certBuy(ctx context.Context, c *call) (interface{}, error) {
	var params certBuyParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	value, err := parseAmount("value", params.Value)
	if err != nil {
		return nil, err
	}
	return s.execToken(ctx, "cert_buy", params.ID, func(l core.Ledger) error {
		return l.Certificates.Buy(c.caller, params.ID, value)
	})
}

func (s *Server) certDonate(ctx context.Context, c *call) (interface{}, error) {
	var params certTransferParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	to, err := parseAddress("to", params.To)
	if err != nil {
		return nil, err
	}
	return s.execToken(ctx, "cert_donate", params.ID, func(l core.Ledger) error {
		return l.Certificates.Donate(c.caller, params.ID, to)
	})
}

func (s *Server) certClaim(ctx context.Context, c *call) (interface{}, error) {
	var params certEscrowParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	asset, err := parseAsset("asset", params.Asset)
	if err != nil {
		return nil, err
	}
	beneficiary, err := parseAddress("beneficiary", params.Beneficiary)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", params.Amount)
	if err != nil {
		return nil, err
	}
	var remaining *big.Int
	err = s.host.Execute(ctx, "cert_claim", func(l core.Ledger) error {
		if err := l.Certificates.Claim(c.caller, asset, beneficiary, amount); err != nil {
			return err
		}
		var err error
		remaining, err = l.Certificates.EscrowBalance(asset, beneficiary)
		return err
	})
	if err != nil {
		return nil, err
	}
	return map[string]string{"claimed": amount.String(), "remaining": formatAmount(remaining)}, nil
}

func (s *Server) certWithdraw(ctx context.Context, c *call) (interface{}, error) {
	var params certEscrowParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	asset, err := parseAsset("asset", params.Asset)
	if err != nil {
		return nil, err
	}
	to, err := parseAddress("to", params.To)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", params.Amount)
	if err != nil {
		return nil, err
	}
	var remaining *big.Int
	err = s.host.Execute(ctx, "cert_withdraw", func(l core.Ledger) error {
		if err := l.Certificates.Withdraw(c.caller, asset, to, amount); err != nil {
			return err
		}
		var err error
		remaining, err = l.Certificates.ChangeBalance(asset)
		return err
	})
	if err != nil {
		return nil, err
	}
	return map[string]string{"withdrawn": amount.String(), "remaining": formatAmount(remaining)}, nil
}

func (s *Server) certSetAdmin(ctx context.Context, c *call) (interface{}, error) {
	return s.setRole(ctx, c, "cert_setAdmin", func(l core.Ledger, addr common.Address) error {
		return l.Certificates.SetAdmin(c.caller, addr)
	})
}

func (s *Server) certSetVerifier(ctx context.Context, c *call) (interface{}, error) {
	return s.setRole(ctx, c, "cert_setVerifier", func(l core.Ledger, addr common.Address) error {
		return l.Certificates.SetVerifier(c.caller, addr)
	})
}

func (s *Server) setRole(ctx context.Context, c *call, op string, fn func(core.Ledger, common.Address) error) (interface{}, error) {
	var params certRoleParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	addr, err := parseRoleAddress(params.Address)
	if err != nil {
		return nil, err
	}
	var roles *certificate.Roles
	err = s.host.Execute(ctx, op, func(l core.Ledger) error {
		if err := fn(l, addr); err != nil {
			return err
		}
		var err error
		roles, err = l.Certificates.Roles()
		return err
	})
	if err != nil {
		return nil, err
	}
	return formatRoles(roles), nil
}

// parseRoleAddress lets an empty value through as the zero address so the
// engine can reject it with its own reason.
func parseRoleAddress(raw string) (common.Address, error) {
	if raw == "" {
		return common.Address{}, nil
	}
	return parseAddress("address", raw)
}

func (s *Server) certSetExpiration(ctx context.Context, c *call) (interface{}, error) {
	var params certExpirationParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	err := s.host.Execute(ctx, "cert_setExpiration", func(l core.Ledger) error {
		return l.Certificates.SetExpiration(c.caller, params.Seconds)
	})
	if err != nil {
		return nil, err
	}
	return map[string]uint64{"expirationPeriod": params.Seconds}, nil
}

func (s *Server) certSetDefaultRoyalty(ctx context.Context, c *call) (interface{}, error) {
	var params certRoyaltyParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	receiver, err := parseRoleAddress(params.Receiver)
	if err != nil {
		return nil, err
	}
	err = s.host.Execute(ctx, "cert_setDefaultRoyalty", func(l core.Ledger) error {
		return l.Certificates.SetDefaultRoyalty(c.caller, receiver, params.Bps)
	})
	if err != nil {
		return nil, err
	}
	return certificate.RoyaltyFields{Receiver: receiver.Hex(), Bps: params.Bps}, nil
}

func (s *Server) query(ctx context.Context, fn func(core.Ledger) (interface{}, error)) (interface{}, error) {
	var out interface{}
	err := s.host.Query(ctx, func(l core.Ledger) error {
		var err error
		out, err = fn(l)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Server) certToken(ctx context.Context, c *call) (interface{}, error) {
	var params certIDParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	return s.query(ctx, func(l core.Ledger) (interface{}, error) {
		token, err := l.Certificates.Token(params.ID)
		if err != nil {
			return nil, err
		}
		return formatToken(token), nil
	})
}

func (s *Server) certOwnerOf(ctx context.Context, c *call) (interface{}, error) {
	var params certIDParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	return s.query(ctx, func(l core.Ledger) (interface{}, error) {
		owner, err := l.Certificates.OwnerOf(params.ID)
		if err != nil {
			return nil, err
		}
		return owner.Hex(), nil
	})
}

func (s *Server) certTokenURI(ctx context.Context, c *call) (interface{}, error) {
	var params certIDParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	return s.query(ctx, func(l core.Ledger) (interface{}, error) {
		return l.Certificates.TokenURI(params.ID)
	})
}

func (s *Server) certTypeOf(ctx context.Context, c *call) (interface{}, error) {
	var params certIDParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	return s.query(ctx, func(l core.Ledger) (interface{}, error) {
		typ, err := l.Certificates.TypeOf(params.ID)
		if err != nil {
			return nil, err
		}
		return typ.String(), nil
	})
}

func (s *Server) certExpirationOf(ctx context.Context, c *call) (interface{}, error) {
	var params certIDParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	return s.query(ctx, func(l core.Ledger) (interface{}, error) {
		return l.Certificates.ExpirationOf(params.ID)
	})
}

func (s *Server) certTokenIDOf(ctx context.Context, c *call) (interface{}, error) {
	var params certSignatureParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	sig, err := parseSignature(params.Signature)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, func(l core.Ledger) (interface{}, error) {
		id, ok, err := l.Certificates.TokenIDOf(sig)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"id": id, "found": ok}, nil
	})
}

func (s *Server) certBalanceOf(ctx context.Context, c *call) (interface{}, error) {
	var params certOwnerParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	owner, err := parseAddress("owner", params.Owner)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, func(l core.Ledger) (interface{}, error) {
		return l.Certificates.BalanceOf(owner)
	})
}

func (s *Server) certIsApprovedForAll(ctx context.Context, c *call) (interface{}, error) {
	var params certApprovalParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	owner, err := parseAddress("owner", params.Owner)
	if err != nil {
		return nil, err
	}
	operator, err := parseAddress("operator", params.Operator)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, func(l core.Ledger) (interface{}, error) {
		return l.Certificates.IsApprovedForAll(owner, operator)
	})
}

func (s *Server) certRoyaltyInfo(ctx context.Context, c *call) (interface{}, error) {
	var params certRoyaltyParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	price, err := parseAmount("salePrice", params.SalePrice)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, func(l core.Ledger) (interface{}, error) {
		receiver, amount, err := l.Certificates.RoyaltyInfo(params.ID, price)
		if err != nil {
			return nil, err
		}
		return royaltyInfoJSON{Receiver: receiver.Hex(), Amount: formatAmount(amount)}, nil
	})
}

func (s *Server) certDefaultRoyalty(ctx context.Context, _ *call) (interface{}, error) {
	return s.query(ctx, func(l core.Ledger) (interface{}, error) {
		royalty, err := l.Certificates.DefaultRoyalty()
		if err != nil {
			return nil, err
		}
		return certificate.RoyaltyFields{Receiver: royalty.Receiver.Hex(), Bps: royalty.Bps}, nil
	})
}

func (s *Server) certEscrowBalance(ctx context.Context, c *call) (interface{}, error) {
	var params certEscrowParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	asset, err := parseAsset("asset", params.Asset)
	if err != nil {
		return nil, err
	}
	beneficiary, err := parseAddress("beneficiary", params.Beneficiary)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, func(l core.Ledger) (interface{}, error) {
		balance, err := l.Certificates.EscrowBalance(asset, beneficiary)
		if err != nil {
			return nil, err
		}
		return formatAmount(balance), nil
	})
}

func (s *Server) certChangeBalance(ctx context.Context, c *call) (interface{}, error) {
	var params certEscrowParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	asset, err := parseAsset("asset", params.Asset)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, func(l core.Ledger) (interface{}, error) {
		balance, err := l.Certificates.ChangeBalance(asset)
		if err != nil {
			return nil, err
		}
		return formatAmount(balance), nil
	})
}

func (s *Server) certLastID(ctx context.Context, _ *call) (interface{}, error) {
	return s.query(ctx, func(l core.Ledger) (interface{}, error) {
		return l.Certificates.LastID()
	})
}

func (s *Server) certRoles(ctx context.Context, _ *call) (interface{}, error) {
	return s.query(ctx, func(l core.Ledger) (interface{}, error) {
		roles, err := l.Certificates.Roles()
		if err != nil {
			return nil, err
		}
		return formatRoles(roles), nil
	})
}

func (s *Server) certExpirationPeriod(ctx context.Context, _ *call) (interface{}, error) {
	return s.query(ctx, func(l core.Ledger) (interface{}, error) {
		return l.Certificates.ExpirationPeriod()
	})
}

// certMintDigest returns the digest a verifier signs for payload, so
// clients can check their encoding against the node.
func (s *Server) certMintDigest(_ context.Context, c *call) (interface{}, error) {
	var params struct {
		Payload certificate.MintFields `json:"payload"`
	}
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	payload, err := mintPayload(&params.Payload)
	if err != nil {
		return nil, err
	}
	digest, err := payload.Digest(s.host.Collection())
	if err != nil {
		return nil, err
	}
	return digest.Hex(), nil
}

func formatRoles(r *certificate.Roles) rolesJSON {
	return rolesJSON{Owner: r.Owner.Hex(), Admin: r.Admin.Hex(), Verifier: r.Verifier.Hex()}
}
