package sale

import coreerrors "certchain/core/errors"

func newError(kind coreerrors.Kind, code, reason string) *coreerrors.Error {
	return coreerrors.New("sale", kind, code, reason)
}

var (
	ErrInvalidTokenAddress     = newError(coreerrors.KindValidation, "invalid_token_address", "Invalid token address")
	ErrEmptyTokenIDs           = newError(coreerrors.KindValidation, "empty_token_ids", "Empty token ids")
	ErrLimitLength             = newError(coreerrors.KindValidation, "limit_length", "Limit length")
	ErrInconsistentLength      = newError(coreerrors.KindValidation, "inconsistent_length", "Inconsistent length")
	ErrInvalidPrice            = newError(coreerrors.KindValidation, "invalid_price", "Invalid price")
	ErrDuplicateToken          = newError(coreerrors.KindValidation, "duplicate_token", "Duplicate token")
	ErrInvalidAddress          = newError(coreerrors.KindValidation, "invalid_address", "Invalid address")
	ErrNonexistentSale         = newError(coreerrors.KindState, "nonexistent_sale", "Nonexistent sale")
	ErrSaleCancelled           = newError(coreerrors.KindState, "sale_cancelled", "Sale was cancelled")
	ErrTokenSold               = newError(coreerrors.KindState, "token_sold", "Token was sold")
	ErrTokenNotListed          = newError(coreerrors.KindState, "token_not_listed", "Token not in sale")
	ErrAlreadyOwned            = newError(coreerrors.KindState, "already_owned", "Already owned")
	ErrNotManager              = newError(coreerrors.KindAuthorization, "not_manager", "Caller must be manager of sale")
	ErrNotTokenOwner           = newError(coreerrors.KindAuthorization, "not_token_owner", "Caller is not token owner")
	ErrInvalidAttachedValue    = newError(coreerrors.KindEconomic, "invalid_attached_value", "Invalid attached value")
	ErrUnexpectedAttachedValue = newError(coreerrors.KindEconomic, "unexpected_attached_value", "Unexpected attached value")

	errNilState  = newError(coreerrors.KindUnknown, "internal", "state not configured")
	errNilAssets = newError(coreerrors.KindUnknown, "internal", "asset ledger not configured")
)
