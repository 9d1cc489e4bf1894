package rpc

import (
	"context"
	"math/big"

	"certchain/core"
)

// maxFaucetAmount caps a single faucet credit.
var maxFaucetAmount = new(big.Int).Exp(big.NewInt(10), big.NewInt(24), nil)

type bankParams struct {
	Token   string `json:"token,omitempty"`
	Address string `json:"address,omitempty"`
	Owner   string `json:"owner,omitempty"`
	Spender string `json:"spender,omitempty"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
	Amount  string `json:"amount,omitempty"`
}

type tokenInfoJSON struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
	Minter   string `json:"minter"`
	Supply   string `json:"supply"`
}

type accountJSON struct {
	Address string `json:"address"`
	Kind    string `json:"kind"`
	Label   string `json:"label,omitempty"`
	Balance string `json:"balance"`
}

func (s *Server) registerBankMethods() {
	s.register("bank_account", "bank", false, s.bankAccount)
	s.register("bank_balance", "bank", false, s.bankBalance)
	s.register("bank_token", "bank", false, s.bankToken)
	s.register("bank_tokenBalance", "bank", false, s.bankTokenBalance)
	s.register("bank_allowance", "bank", false, s.bankAllowance)
	s.register("bank_transfer", "bank", true, s.bankTransfer)
	s.register("bank_tokenTransfer", "bank", true, s.bankTokenTransfer)
	s.register("bank_approve", "bank", true, s.bankApprove)
	s.register("bank_transferFrom", "bank", true, s.bankTransferFrom)
	s.register("bank_mint", "bank", true, s.bankMint)
	if s.cfg.EnableFaucet {
		s.register("bank_faucet", "bank", true, s.bankFaucet)
	}
}

func (s *Server) bankAccount(ctx context.Context, c *call) (interface{}, error) {
	var params bankParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	addr, err := parseAddress("address", params.Address)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, func(l core.Ledger) (interface{}, error) {
		account, err := l.Bank.Account(addr)
		if err != nil {
			return nil, err
		}
		return accountJSON{
			Address: addr.Hex(),
			Kind:    account.Kind.String(),
			Label:   account.Label,
			Balance: formatAmount(account.Balance),
		}, nil
	})
}

func (s *Server) bankBalance(ctx context.Context, c *call) (interface{}, error) {
	var params bankParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	addr, err := parseAddress("address", params.Address)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, func(l core.Ledger) (interface{}, error) {
		balance, err := l.Bank.NativeBalance(addr)
		if err != nil {
			return nil, err
		}
		return formatAmount(balance), nil
	})
}

func (s *Server) bankToken(ctx context.Context, c *call) (interface{}, error) {
	var params bankParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	token, err := parseAddress("token", params.Token)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, func(l core.Ledger) (interface{}, error) {
		meta, err := l.Bank.TokenInfo(token)
		if err != nil {
			return nil, err
		}
		return tokenInfoJSON{
			Address:  token.Hex(),
			Name:     meta.Name,
			Symbol:   meta.Symbol,
			Decimals: meta.Decimals,
			Minter:   meta.Minter.Hex(),
			Supply:   formatAmount(meta.Supply),
		}, nil
	})
}

func (s *Server) bankTokenBalance(ctx context.Context, c *call) (interface{}, error) {
	var params bankParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	token, err := parseAddress("token", params.Token)
	if err != nil {
		return nil, err
	}
	holder, err := parseAddress("address", params.Address)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, func(l core.Ledger) (interface{}, error) {
		balance, err := l.Bank.TokenBalance(token, holder)
		if err != nil {
			return nil, err
		}
		return formatAmount(balance), nil
	})
}

func (s *Server) bankAllowance(ctx context.Context, c *call) (interface{}, error) {
	var params bankParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	token, err := parseAddress("token", params.Token)
	if err != nil {
		return nil, err
	}
	owner, err := parseAddress("owner", params.Owner)
	if err != nil {
		return nil, err
	}
	spender, err := parseAddress("spender", params.Spender)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, func(l core.Ledger) (interface{}, error) {
		allowance, err := l.Bank.Allowance(token, owner, spender)
		if err != nil {
			return nil, err
		}
		return formatAmount(allowance), nil
	})
}

func (s *Server) bankTransfer(ctx context.Context, c *call) (interface{}, error) {
	var params bankParams
	if err := decodeParams(c.params, &params); err != nil {
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
	var balance *big.Int
	err = s.host.Execute(ctx, "bank_transfer", func(l core.Ledger) error {
		if err := l.Bank.TransferNative(c.caller, to, amount); err != nil {
			return err
		}
		var err error
		balance, err = l.Bank.NativeBalance(c.caller)
		return err
	})
	if err != nil {
		return nil, err
	}
	return map[string]string{"balance": formatAmount(balance)}, nil
}

func (s *Server) bankTokenTransfer(ctx context.Context, c *call) (interface{}, error) {
	var params bankParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	token, err := parseAddress("token", params.Token)
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
	var balance *big.Int
	err = s.host.Execute(ctx, "bank_tokenTransfer", func(l core.Ledger) error {
		if err := l.Bank.TransferToken(token, c.caller, to, amount); err != nil {
			return err
		}
		var err error
		balance, err = l.Bank.TokenBalance(token, c.caller)
		return err
	})
	if err != nil {
		return nil, err
	}
	return map[string]string{"balance": formatAmount(balance)}, nil
}

func (s *Server) bankApprove(ctx context.Context, c *call) (interface{}, error) {
	var params bankParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	token, err := parseAddress("token", params.Token)
	if err != nil {
		return nil, err
	}
	spender, err := parseAddress("spender", params.Spender)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", params.Amount)
	if err != nil {
		return nil, err
	}
	err = s.host.Execute(ctx, "bank_approve", func(l core.Ledger) error {
		return l.Bank.Approve(token, c.caller, spender, amount)
	})
	if err != nil {
		return nil, err
	}
	return map[string]string{"allowance": amount.String()}, nil
}

func (s *Server) bankTransferFrom(ctx context.Context, c *call) (interface{}, error) {
	var params bankParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	token, err := parseAddress("token", params.Token)
	if err != nil {
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
	amount, err := parseAmount("amount", params.Amount)
	if err != nil {
		return nil, err
	}
	var remaining *big.Int
	err = s.host.Execute(ctx, "bank_transferFrom", func(l core.Ledger) error {
		if err := l.Bank.TransferTokenFrom(token, c.caller, from, to, amount); err != nil {
			return err
		}
		var err error
		remaining, err = l.Bank.Allowance(token, from, c.caller)
		return err
	})
	if err != nil {
		return nil, err
	}
	return map[string]string{"allowance": formatAmount(remaining)}, nil
}

func (s *Server) bankMint(ctx context.Context, c *call) (interface{}, error) {
	var params bankParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	token, err := parseAddress("token", params.Token)
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
	var balance *big.Int
	err = s.host.Execute(ctx, "bank_mint", func(l core.Ledger) error {
		if err := l.Bank.MintToken(c.caller, token, to, amount); err != nil {
			return err
		}
		var err error
		balance, err = l.Bank.TokenBalance(token, to)
		return err
	})
	if err != nil {
		return nil, err
	}
	return map[string]string{"balance": formatAmount(balance)}, nil
}

func (s *Server) bankFaucet(ctx context.Context, c *call) (interface{}, error) {
	var params bankParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", params.Amount)
	if err != nil {
		return nil, err
	}
	if amount.Sign() == 0 || amount.Cmp(maxFaucetAmount) > 0 {
		return nil, invalidParams("amount must be between 1 and %s", maxFaucetAmount.String())
	}
	var balance *big.Int
	err = s.host.Execute(ctx, "bank_faucet", func(l core.Ledger) error {
		if err := l.Bank.CreditNative(c.caller, amount); err != nil {
			return err
		}
		var err error
		balance, err = l.Bank.NativeBalance(c.caller)
		return err
	})
	if err != nil {
		return nil, err
	}
	return map[string]string{"balance": formatAmount(balance)}, nil
}
