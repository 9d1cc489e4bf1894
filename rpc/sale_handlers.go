package rpc

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"certchain/core"
	"certchain/native/sale"
)

type saleCreateParams struct {
	Collection string         `json:"collection,omitempty"`
	Items      []saleItemJSON `json:"items"`
}

type saleUpdateParams struct {
	SaleID uint64         `json:"saleId"`
	Items  []saleItemJSON `json:"items"`
}

type saleBuyParams struct {
	SaleID  uint64 `json:"saleId"`
	TokenID uint64 `json:"tokenId"`
	Value   string `json:"value,omitempty"`
}

type saleIDParams struct {
	SaleID uint64 `json:"saleId"`
}

func (s *Server) registerSaleMethods() {
	s.register("sale_create", "sale", true, s.saleCreate)
	s.register("sale_update", "sale", true, s.saleUpdate)
	s.register("sale_cancel", "sale", true, s.saleCancel)
	s.register("sale_buy", "sale", true, s.saleBuy)
	s.register("sale_get", "sale", false, s.saleGet)
	s.register("sale_lastId", "sale", false, s.saleLastID)
}

func parseSaleItems(items []saleItemJSON) ([]uint64, []common.Address, []*big.Int, error) {
	ids := make([]uint64, len(items))
	assets := make([]common.Address, len(items))
	prices := make([]*big.Int, len(items))
	for i, item := range items {
		asset, err := parseAsset("paymentToken", item.PaymentToken)
		if err != nil {
			return nil, nil, nil, err
		}
		price, err := parseAmount("price", item.Price)
		if err != nil {
			return nil, nil, nil, err
		}
		ids[i] = item.TokenID
		assets[i] = asset
		prices[i] = price
	}
	return ids, assets, prices, nil
}

func (s *Server) saleCreate(ctx context.Context, c *call) (interface{}, error) {
	var params saleCreateParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	collection := s.host.Collection()
	if params.Collection != "" {
		var err error
		if collection, err = parseAddress("collection", params.Collection); err != nil {
			return nil, err
		}
	}
	ids, assets, prices, err := parseSaleItems(params.Items)
	if err != nil {
		return nil, err
	}
	var created *sale.Sale
	err = s.host.Execute(ctx, "sale_create", func(l core.Ledger) error {
		var err error
		created, err = l.Sale.Create(c.caller, collection, ids, assets, prices)
		return err
	})
	if err != nil {
		return nil, err
	}
	return formatSale(created), nil
}

func (s *Server) saleUpdate(ctx context.Context, c *call) (interface{}, error) {
	var params saleUpdateParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	ids, assets, prices, err := parseSaleItems(params.Items)
	if err != nil {
		return nil, err
	}
	items := make([]sale.Item, len(ids))
	for i := range ids {
		items[i] = sale.Item{TokenID: ids[i], PaymentToken: assets[i], Price: prices[i]}
	}
	var updated *sale.Sale
	err = s.host.Execute(ctx, "sale_update", func(l core.Ledger) error {
		var err error
		updated, err = l.Sale.Update(c.caller, params.SaleID, items)
		return err
	})
	if err != nil {
		return nil, err
	}
	return formatSale(updated), nil
}

func (s *Server) saleCancel(ctx context.Context, c *call) (interface{}, error) {
	var params saleIDParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	return s.execSale(ctx, "sale_cancel", params.SaleID, func(l core.Ledger) error {
		return l.Sale.Cancel(c.caller, params.SaleID)
	})
}

func (s *Server) saleBuy(ctx context.Context, c *call) (interface{}, error) {
	var params saleBuyParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	value, err := parseAmount("value", params.Value)
	if err != nil {
		return nil, err
	}
	return s.execSale(ctx, "sale_buy", params.SaleID, func(l core.Ledger) error {
		return l.Sale.Buy(c.caller, params.SaleID, params.TokenID, value)
	})
}

func (s *Server) execSale(ctx context.Context, op string, id uint64, fn func(core.Ledger) error) (interface{}, error) {
	var out *sale.Sale
	err := s.host.Execute(ctx, op, func(l core.Ledger) error {
		if err := fn(l); err != nil {
			return err
		}
		var err error
		out, err = l.Sale.Sale(id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return formatSale(out), nil
}

func (s *Server) saleGet(ctx context.Context, c *call) (interface{}, error) {
	var params saleIDParams
	if err := decodeParams(c.params, &params); err != nil {
		return nil, err
	}
	return s.query(ctx, func(l core.Ledger) (interface{}, error) {
		out, err := l.Sale.Sale(params.SaleID)
		if err != nil {
			return nil, err
		}
		return formatSale(out), nil
	})
}

func (s *Server) saleLastID(ctx context.Context, _ *call) (interface{}, error) {
	return s.query(ctx, func(l core.Ledger) (interface{}, error) {
		return l.Sale.LastID()
	})
}
