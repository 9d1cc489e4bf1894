package certificate

import (
	"github.com/ethereum/go-ethereum/common"
)

func isAdmin(roles *Roles, caller common.Address) bool {
	if isZero(caller) {
		return false
	}
	return caller == roles.Owner || caller == roles.Admin
}

func (e *Engine) validateRoleCandidate(addr common.Address) error {
	ok, err := e.plainAccount(addr)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidRoleAddress
	}
	return nil
}

// InitRoles seeds the authority record. It is used by genesis and bypasses
// caller checks; the owner must be a plain account.
func (e *Engine) InitRoles(roles Roles) error {
	return e.atomic(func() error {
		if err := e.validateRoleCandidate(roles.Owner); err != nil {
			return err
		}
		for _, addr := range []common.Address{roles.Admin, roles.Verifier} {
			if isZero(addr) {
				continue
			}
			if err := e.validateRoleCandidate(addr); err != nil {
				return err
			}
		}
		record := roles
		return e.state.CertificatePutRoles(&record)
	})
}

// SetAdmin replaces the admin. Only the owner may call it.
func (e *Engine) SetAdmin(caller, admin common.Address) error {
	return e.atomic(func() error {
		roles, err := e.roles()
		if err != nil {
			return err
		}
		if isZero(caller) || caller != roles.Owner {
			return ErrNotOwner
		}
		if err := e.validateRoleCandidate(admin); err != nil {
			return err
		}
		previous := roles.Admin
		roles.Admin = admin
		if err := e.state.CertificatePutRoles(roles); err != nil {
			return err
		}
		e.emit(roleChangedEvent(EventTypeAdminSet, previous, admin))
		return nil
	})
}

// SetVerifier replaces the signer whose authorisations are accepted. The
// owner or the admin may call it.
func (e *Engine) SetVerifier(caller, verifier common.Address) error {
	return e.atomic(func() error {
		roles, err := e.roles()
		if err != nil {
			return err
		}
		if !isAdmin(roles, caller) {
			return ErrNotAdmin
		}
		if err := e.validateRoleCandidate(verifier); err != nil {
			return err
		}
		previous := roles.Verifier
		roles.Verifier = verifier
		if err := e.state.CertificatePutRoles(roles); err != nil {
			return err
		}
		e.emit(roleChangedEvent(EventTypeVerifierSet, previous, verifier))
		e.logger.Info("certificate verifier rotated", "old", previous.Hex(), "new", verifier.Hex())
		return nil
	})
}

// SetExpiration changes the default validity window applied to new mints.
// Only the admin may call it.
func (e *Engine) SetExpiration(caller common.Address, seconds uint64) error {
	return e.atomic(func() error {
		roles, err := e.roles()
		if err != nil {
			return err
		}
		if isZero(caller) || caller != roles.Admin {
			return ErrNotAdmin
		}
		if seconds == 0 {
			return ErrInvalidExpiration
		}
		params, err := e.params()
		if err != nil {
			return err
		}
		previous := params.ExpirationPeriod
		params.ExpirationPeriod = seconds
		if err := e.state.CertificatePutParams(params); err != nil {
			return err
		}
		e.emit(ExpirationSetEvent(previous, seconds))
		return nil
	})
}
