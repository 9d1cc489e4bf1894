package certificate

// Attribute updates are authorised by the verifier's signature alone; the
// submitting caller is irrelevant. Each signed payload binds the token's
// current revision, which is bumped on success, so an authorisation can be
// applied at most once.

func (e *Engine) storeRevision(token *Token) error {
	token.Revision++
	return e.state.CertificatePut(token)
}

// SetTokenURI replaces the metadata URI of a token.
func (e *Engine) SetTokenURI(id uint64, uri string, sig []byte) error {
	return e.atomic(func() error {
		token, err := e.loadToken(id)
		if err != nil {
			return err
		}
		if uri == "" {
			return ErrEmptyURI
		}
		payload := TokenURIPayload{TokenID: id, Revision: token.Revision, URI: uri}
		digest, err := payload.Digest(e.cfg.Address)
		if err != nil {
			return err
		}
		if err := e.authorize(digest, sig); err != nil {
			return err
		}
		previous := token.URI
		token.URI = uri
		if err := e.storeRevision(token); err != nil {
			return err
		}
		e.emit(URIUpdatedEvent(id, previous, uri))
		return nil
	})
}

// SetStatus toggles whether a token is active. Inactive tokens cannot be
// transferred, bought or donated.
func (e *Engine) SetStatus(id uint64, active bool, sig []byte) error {
	return e.atomic(func() error {
		token, err := e.loadToken(id)
		if err != nil {
			return err
		}
		if token.Active == active {
			return ErrDuplicateValue
		}
		payload := StatusPayload{TokenID: id, Revision: token.Revision, Active: active}
		digest, err := payload.Digest(e.cfg.Address)
		if err != nil {
			return err
		}
		if err := e.authorize(digest, sig); err != nil {
			return err
		}
		previous := token.Active
		token.Active = active
		if err := e.storeRevision(token); err != nil {
			return err
		}
		e.emit(StatusUpdatedEvent(id, previous, active))
		return nil
	})
}

// SetType moves a token between the normal and furusato lifecycle types.
// Donated tokens are frozen and the donated type can only be entered
// through Donate.
func (e *Engine) SetType(id uint64, typ TokenType, sig []byte) error {
	return e.atomic(func() error {
		token, err := e.loadToken(id)
		if err != nil {
			return err
		}
		if typ != TypeNormal && typ != TypeFurusato {
			return ErrInvalidTokenType
		}
		if token.Type == TypeDonated {
			return ErrInvalidTokenType
		}
		if token.Type == typ {
			return ErrDuplicateValue
		}
		payload := TypePayload{TokenID: id, Revision: token.Revision, Type: typ}
		digest, err := payload.Digest(e.cfg.Address)
		if err != nil {
			return err
		}
		if err := e.authorize(digest, sig); err != nil {
			return err
		}
		previous := token.Type
		token.Type = typ
		if err := e.storeRevision(token); err != nil {
			return err
		}
		e.emit(TypeUpdatedEvent(id, previous, typ))
		return nil
	})
}
