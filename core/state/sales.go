package state

import (
	"math/big"

	"certchain/native/sale"
)

// SaleLastID returns the last allocated sale id.
func (m *Manager) SaleLastID() (uint64, error) {
	return m.loadUint64(saleLastIDKey)
}

// SaleSetLastID stores the last allocated sale id.
func (m *Manager) SaleSetLastID(id uint64) error {
	return m.KVPut(saleLastIDKey, id)
}

// SaleGet loads a sale by id.
func (m *Manager) SaleGet(id uint64) (*sale.Sale, bool, error) {
	record := new(sale.Sale)
	ok, err := m.KVGet(saleKey(id), record)
	if err != nil || !ok {
		return nil, false, err
	}
	for i := range record.Items {
		if record.Items[i].Price == nil {
			record.Items[i].Price = big.NewInt(0)
		}
	}
	return record, true, nil
}

// SalePut stores a sale under its id.
func (m *Manager) SalePut(record *sale.Sale) error {
	if record == nil {
		return nil
	}
	return m.KVPut(saleKey(record.ID), record)
}
