package state

import (
	"errors"
)

var (
	ErrNotFound = errors.New("not found")
)

// authorization
var (
	ErrUnauthorizedCaller      = errors.New("caller not authorized")
	ErrNotGovernance           = errors.New("caller is not governance")
	ErrControllerNotConfigured = errors.New("governance controller not configured")
	ErrMissingRole             = errors.New("account missing role")
	ErrNotEmergencyAdmin       = errors.New("caller is not emergency admin")
	ErrNotCouncilMember        = errors.New("caller is not an active council member")
	ErrTxSigInvalid            = errors.New("signature invalid")
)

// validation
var (
	ErrZeroAddress         = errors.New("zero address")
	ErrZeroAmount          = errors.New("zero amount")
	ErrUnknownRole         = errors.New("unknown role")
	ErrInvalidPower        = errors.New("invalid voting power")
	ErrInvalidConfig       = errors.New("invalid council config")
	ErrInvalidProposal     = errors.New("invalid proposal")
	ErrAlreadyMember       = errors.New("account already council member")
	ErrCannotRemoveSelf    = errors.New("member cannot propose own removal")
	ErrAssetNotWhitelisted = errors.New("asset not whitelisted")
	ErrRatioNotSet         = errors.New("asset ratio not configured")
	ErrInvalidRatio        = errors.New("invalid asset ratio")
	ErrUnknownAsset        = errors.New("unknown asset")
	ErrBelowMinimumMint    = errors.New("deposit below minimum mint")
	ErrTxNonceInvalid      = errors.New("nonce invalid")
	ErrTxMalformed         = errors.New("malformed tx")
)

// state
var (
	ErrProposalNotFound       = errors.New("proposal not found")
	ErrProposalNotActive      = errors.New("proposal not active")
	ErrVotingClosed           = errors.New("voting period ended")
	ErrAlreadyVoted           = errors.New("already voted")
	ErrProposalNotSucceeded   = errors.New("proposal not succeeded")
	ErrTimelockActive         = errors.New("proposal timelock not elapsed")
	ErrProposalExecuted       = errors.New("proposal already executed")
	ErrRoleChangeNotFound     = errors.New("role change not found")
	ErrRoleChangeExecuted     = errors.New("role change already executed")
	ErrSetupClosed            = errors.New("setup window closed")
	ErrInsufficientMinted     = errors.New("insufficient minted amount")
	ErrInsufficientCollateral = errors.New("insufficient collateral")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrInsufficientAllowance  = errors.New("insufficient allowance")
	ErrPaused                 = errors.New("token paused")
	ErrEmergencyActive        = errors.New("emergency mode active")
	ErrBlacklisted            = errors.New("account blacklisted")
	ErrNoMintAuthority        = errors.New("ledger lacks mint authority")
	ErrReentrantCall          = errors.New("reentrant call")
)

// invariant
var (
	ErrWouldViolateMinimumRatio = errors.New("would violate minimum collateral ratio")
	ErrMaxSupplyExceeded        = errors.New("max supply exceeded")
	ErrMaxSupplyBelowTotal      = errors.New("max supply below total supply")
	ErrCouncilBelowMinimum      = errors.New("council would drop below minimum size")
	ErrCouncilAboveMaximum      = errors.New("council would exceed maximum size")
	ErrOverflow                 = errors.New("arithmetic overflow")
)

// dispatch
var (
	ErrExecutionFailed = errors.New("execution failed")
	ErrUnknownTarget   = errors.New("unknown call target")
	ErrNoDispatcher    = errors.New("no dispatcher configured")
)

const (
	CodeOK       uint32 = 0
	CodeInternal uint32 = 1

	CategoryAuthorization = "authorization"
	CategoryValidation    = "validation"
	CategoryState         = "state"
	CategoryInvariant     = "invariant"
	CategoryDispatch      = "dispatch"
	CategoryInternal      = "internal"
)

type errorCode struct {
	err      error
	code     uint32
	category string
}

// Ordered: dispatch errors wrap their cause and must match first.
var errorCodes = []errorCode{
	{ErrExecutionFailed, 80, CategoryDispatch},
	{ErrUnknownTarget, 81, CategoryDispatch},
	{ErrNoDispatcher, 82, CategoryDispatch},

	{ErrUnauthorizedCaller, 10, CategoryAuthorization},
	{ErrNotGovernance, 11, CategoryAuthorization},
	{ErrControllerNotConfigured, 12, CategoryAuthorization},
	{ErrMissingRole, 13, CategoryAuthorization},
	{ErrNotEmergencyAdmin, 14, CategoryAuthorization},
	{ErrNotCouncilMember, 15, CategoryAuthorization},
	{ErrTxSigInvalid, 16, CategoryAuthorization},

	{ErrZeroAddress, 20, CategoryValidation},
	{ErrZeroAmount, 21, CategoryValidation},
	{ErrUnknownRole, 22, CategoryValidation},
	{ErrInvalidPower, 23, CategoryValidation},
	{ErrInvalidConfig, 24, CategoryValidation},
	{ErrInvalidProposal, 25, CategoryValidation},
	{ErrAlreadyMember, 26, CategoryValidation},
	{ErrCannotRemoveSelf, 27, CategoryValidation},
	{ErrAssetNotWhitelisted, 28, CategoryValidation},
	{ErrRatioNotSet, 29, CategoryValidation},
	{ErrInvalidRatio, 30, CategoryValidation},
	{ErrUnknownAsset, 31, CategoryValidation},
	{ErrBelowMinimumMint, 32, CategoryValidation},
	{ErrTxNonceInvalid, 33, CategoryValidation},
	{ErrTxMalformed, 34, CategoryValidation},

	{ErrProposalNotFound, 40, CategoryState},
	{ErrProposalNotActive, 41, CategoryState},
	{ErrVotingClosed, 42, CategoryState},
	{ErrAlreadyVoted, 43, CategoryState},
	{ErrProposalNotSucceeded, 44, CategoryState},
	{ErrTimelockActive, 45, CategoryState},
	{ErrProposalExecuted, 46, CategoryState},
	{ErrRoleChangeNotFound, 47, CategoryState},
	{ErrRoleChangeExecuted, 48, CategoryState},
	{ErrSetupClosed, 49, CategoryState},
	{ErrInsufficientMinted, 50, CategoryState},
	{ErrInsufficientCollateral, 51, CategoryState},
	{ErrInsufficientBalance, 52, CategoryState},
	{ErrInsufficientAllowance, 53, CategoryState},
	{ErrPaused, 54, CategoryState},
	{ErrEmergencyActive, 55, CategoryState},
	{ErrBlacklisted, 56, CategoryState},
	{ErrNoMintAuthority, 57, CategoryState},
	{ErrReentrantCall, 58, CategoryState},
	{ErrNotFound, 60, CategoryState},

	{ErrWouldViolateMinimumRatio, 70, CategoryInvariant},
	{ErrMaxSupplyExceeded, 71, CategoryInvariant},
	{ErrMaxSupplyBelowTotal, 72, CategoryInvariant},
	{ErrCouncilBelowMinimum, 73, CategoryInvariant},
	{ErrCouncilAboveMaximum, 74, CategoryInvariant},
	{ErrOverflow, 75, CategoryInvariant},
}

// ErrorCode maps an error to the stable result code reported to clients.
func ErrorCode(err error) uint32 {
	if err == nil {
		return CodeOK
	}
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

func ErrorCategory(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.category
		}
	}
	return CategoryInternal
}
