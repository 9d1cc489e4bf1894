package state

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"certchain/native/certificate"
)

func (m *Manager) loadUint64(key []byte) (uint64, error) {
	var value uint64
	if _, err := m.KVGet(key, &value); err != nil {
		return 0, err
	}
	return value, nil
}

func (m *Manager) loadBig(key []byte) (*big.Int, error) {
	value := new(big.Int)
	ok, err := m.KVGet(key, value)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return value, nil
}

func (m *Manager) storeBig(key []byte, value *big.Int) error {
	if value == nil || value.Sign() == 0 {
		return m.KVDelete(key)
	}
	return m.KVPut(key, value)
}

// CertificateLastID returns the last allocated certificate id.
func (m *Manager) CertificateLastID() (uint64, error) {
	return m.loadUint64(certificateLastIDKey)
}

// CertificateSetLastID stores the last allocated certificate id.
func (m *Manager) CertificateSetLastID(id uint64) error {
	return m.KVPut(certificateLastIDKey, id)
}

// CertificateGet loads a certificate by id.
func (m *Manager) CertificateGet(id uint64) (*certificate.Token, bool, error) {
	token := new(certificate.Token)
	ok, err := m.KVGet(certificateTokenKey(id), token)
	if err != nil || !ok {
		return nil, false, err
	}
	if token.Price == nil {
		token.Price = big.NewInt(0)
	}
	if token.Amount == nil {
		token.Amount = big.NewInt(0)
	}
	return token, true, nil
}

// CertificatePut stores a certificate under its id.
func (m *Manager) CertificatePut(token *certificate.Token) error {
	if token == nil {
		return nil
	}
	return m.KVPut(certificateTokenKey(token.ID), token)
}

// CertificateDigestTokenID resolves a consumed mint digest.
func (m *Manager) CertificateDigestTokenID(digest common.Hash) (uint64, bool, error) {
	var id uint64
	ok, err := m.KVGet(certificateDigestKey(digest), &id)
	return id, ok, err
}

// CertificatePutDigest marks a mint digest as consumed by id.
func (m *Manager) CertificatePutDigest(digest common.Hash, id uint64) error {
	return m.KVPut(certificateDigestKey(digest), id)
}

// CertificateSignatureTokenID resolves the token minted with a signature.
func (m *Manager) CertificateSignatureTokenID(sigHash common.Hash) (uint64, bool, error) {
	var id uint64
	ok, err := m.KVGet(certificateSignatureKey(sigHash), &id)
	return id, ok, err
}

// CertificatePutSignature indexes the signature used to mint id.
func (m *Manager) CertificatePutSignature(sigHash common.Hash, id uint64) error {
	return m.KVPut(certificateSignatureKey(sigHash), id)
}

// CertificateEscrowBalance returns the escrowed amount owed to beneficiary.
func (m *Manager) CertificateEscrowBalance(asset, beneficiary common.Address) (*big.Int, error) {
	return m.loadBig(certificateEscrowKey(asset, beneficiary))
}

// CertificatePutEscrowBalance stores the escrowed amount owed to beneficiary.
func (m *Manager) CertificatePutEscrowBalance(asset, beneficiary common.Address, amount *big.Int) error {
	return m.storeBig(certificateEscrowKey(asset, beneficiary), amount)
}

// CertificateChangeBalance returns the platform change held in asset.
func (m *Manager) CertificateChangeBalance(asset common.Address) (*big.Int, error) {
	return m.loadBig(certificateChangeKey(asset))
}

// CertificatePutChangeBalance stores the platform change held in asset.
func (m *Manager) CertificatePutChangeBalance(asset common.Address, amount *big.Int) error {
	return m.storeBig(certificateChangeKey(asset), amount)
}

// CertificateRoyalty loads the per-token royalty override.
func (m *Manager) CertificateRoyalty(id uint64) (*certificate.Royalty, bool, error) {
	royalty := new(certificate.Royalty)
	ok, err := m.KVGet(certificateRoyaltyKey(id), royalty)
	if err != nil || !ok {
		return nil, false, err
	}
	return royalty, true, nil
}

// CertificatePutRoyalty stores the per-token royalty override.
func (m *Manager) CertificatePutRoyalty(id uint64, royalty *certificate.Royalty) error {
	if royalty == nil {
		return m.KVDelete(certificateRoyaltyKey(id))
	}
	return m.KVPut(certificateRoyaltyKey(id), royalty)
}

// CertificateDefaultRoyalty returns the collection-wide royalty, zero
// valued when unset.
func (m *Manager) CertificateDefaultRoyalty() (*certificate.Royalty, error) {
	royalty := new(certificate.Royalty)
	if _, err := m.KVGet(certificateDefaultRoyalty, royalty); err != nil {
		return nil, err
	}
	return royalty, nil
}

// CertificatePutDefaultRoyalty stores the collection-wide royalty.
func (m *Manager) CertificatePutDefaultRoyalty(royalty *certificate.Royalty) error {
	if royalty == nil {
		return m.KVDelete(certificateDefaultRoyalty)
	}
	return m.KVPut(certificateDefaultRoyalty, royalty)
}

// CertificateRoles returns the authority record, zero valued when unset.
func (m *Manager) CertificateRoles() (*certificate.Roles, error) {
	roles := new(certificate.Roles)
	if _, err := m.KVGet(certificateRolesKey, roles); err != nil {
		return nil, err
	}
	return roles, nil
}

// CertificatePutRoles stores the authority record.
func (m *Manager) CertificatePutRoles(roles *certificate.Roles) error {
	if roles == nil {
		return m.KVDelete(certificateRolesKey)
	}
	return m.KVPut(certificateRolesKey, roles)
}

// CertificateParams loads the mutable collection parameters.
func (m *Manager) CertificateParams() (*certificate.Params, bool, error) {
	params := new(certificate.Params)
	ok, err := m.KVGet(certificateParamsKey, params)
	if err != nil || !ok {
		return nil, false, err
	}
	return params, true, nil
}

// CertificatePutParams stores the mutable collection parameters.
func (m *Manager) CertificatePutParams(params *certificate.Params) error {
	if params == nil {
		return m.KVDelete(certificateParamsKey)
	}
	return m.KVPut(certificateParamsKey, params)
}

// CertificateHolderCount returns how many certificates owner holds.
func (m *Manager) CertificateHolderCount(owner common.Address) (uint64, error) {
	return m.loadUint64(certificateHolderKey(owner))
}

// CertificatePutHolderCount stores how many certificates owner holds.
func (m *Manager) CertificatePutHolderCount(owner common.Address, count uint64) error {
	if count == 0 {
		return m.KVDelete(certificateHolderKey(owner))
	}
	return m.KVPut(certificateHolderKey(owner), count)
}

// CertificateOperatorApproved reports whether operator may act for owner.
func (m *Manager) CertificateOperatorApproved(owner, operator common.Address) (bool, error) {
	var approved bool
	if _, err := m.KVGet(certificateOperatorKey(owner, operator), &approved); err != nil {
		return false, err
	}
	return approved, nil
}

// CertificatePutOperatorApproval records an operator approval.
func (m *Manager) CertificatePutOperatorApproval(owner, operator common.Address, approved bool) error {
	if !approved {
		return m.KVDelete(certificateOperatorKey(owner, operator))
	}
	return m.KVPut(certificateOperatorKey(owner, operator), true)
}
