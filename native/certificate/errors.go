package certificate

import coreerrors "certchain/core/errors"

// Error is the classified failure returned by every engine operation.
type Error = coreerrors.Error

// Kind classifies an Error.
type Kind = coreerrors.Kind

const (
	KindValidation    = coreerrors.KindValidation
	KindAuthorization = coreerrors.KindAuthorization
	KindEconomic      = coreerrors.KindEconomic
	KindState         = coreerrors.KindState
)

// KindOf classifies err; errors raised outside the engine report
// coreerrors.KindUnknown unless they carry their own classification.
func KindOf(err error) Kind { return coreerrors.KindOf(err) }

func newError(kind Kind, code, reason string) *Error {
	return coreerrors.New("certificate", kind, code, reason)
}

var (
	ErrInvalidAddress          = newError(KindValidation, "invalid_address", "Invalid address")
	ErrEmptyURI                = newError(KindValidation, "empty_uri", "Empty URI")
	ErrInvalidPrice            = newError(KindValidation, "invalid_price", "Invalid price")
	ErrInvalidTokenAddress     = newError(KindValidation, "invalid_token_address", "Invalid token address")
	ErrInvalidOwnerAddress     = newError(KindValidation, "invalid_owner_address", "Invalid owner address")
	ErrInvalidRoyaltyReceiver  = newError(KindValidation, "invalid_royalty_receiver", "Invalid royalty receiver")
	ErrInvalidRoyaltyPercent   = newError(KindValidation, "invalid_royalty_percent", "Invalid royalty percent")
	ErrInvalidTokenType        = newError(KindValidation, "invalid_token_type", "Invalid token type")
	ErrTransferToSelf          = newError(KindValidation, "transfer_to_self", "Transfer to yourself")
	ErrInvalidAmount           = newError(KindValidation, "invalid_amount", "Invalid amount")
	ErrInvalidRoleAddress      = newError(KindValidation, "invalid_role_address", "Ownable: Invalid address")
	ErrInvalidExpiration       = newError(KindValidation, "invalid_expiration", "Invalid expiration")
	ErrValueOutOfRange         = newError(KindValidation, "value_out_of_range", "Value out of range")
	ErrAmountBelowPrice        = newError(KindEconomic, "amount_below_price", "Amount below price")
	ErrInvalidAttachedValue    = newError(KindEconomic, "invalid_attached_value", "Invalid attached value")
	ErrUnexpectedAttachedValue = newError(KindEconomic, "unexpected_attached_value", "Unexpected attached value")
	ErrInsufficientBalance     = newError(KindEconomic, "insufficient_balance", "Insufficient balance")
	ErrInvalidSignature        = newError(KindAuthorization, "invalid_signature", "Invalid signature")
	ErrSignatureUsed           = newError(KindAuthorization, "signature_used", "Signature already used")
	ErrVerifierNotSet          = newError(KindAuthorization, "verifier_not_set", "Verifier not set")
	ErrNotTokenOwner           = newError(KindAuthorization, "not_token_owner", "Caller is not token owner")
	ErrNotOwnerOrApproved      = newError(KindAuthorization, "not_owner_or_approved", "Caller is not token owner or approved")
	ErrNotOwner                = newError(KindAuthorization, "not_owner", "Ownable: caller is not the owner")
	ErrNotAdmin                = newError(KindAuthorization, "not_admin", "Ownable: Caller is not admin")
	ErrNotBeneficiary          = newError(KindAuthorization, "not_beneficiary", "Caller is not beneficiary")
	ErrNonexistentToken        = newError(KindState, "nonexistent_token", "Nonexistent token")
	ErrDuplicateValue          = newError(KindState, "duplicate_value", "Duplicate value")
	ErrTokenDeactive           = newError(KindState, "token_deactive", "Token is deactive")
	ErrNotTransferable         = newError(KindState, "not_transferable", "Token type not transferable")
	ErrAlreadyOwned            = newError(KindState, "already_owned", "Already owned")
	ErrNotDonatable            = newError(KindState, "not_donatable", "Token not donatable")

	errNilState  = newError(coreerrors.KindUnknown, "internal", "state not configured")
	errNilAssets = newError(coreerrors.KindUnknown, "internal", "asset ledger not configured")

	errHolderCountUnderflow = newError(coreerrors.KindUnknown, "internal", "holder count underflow")
)
