package dareme_protocol

import (
	"errors"
	"fmt"
)

// ErrorCode is a stable numeric program error code.
type ErrorCode uint32

// ErrorCategory groups error codes by how a caller should react.
type ErrorCategory uint8

const (
	// CategoryInput: bad arguments. Fix and resubmit.
	CategoryInput ErrorCategory = iota
	// CategoryAuthorization: wrong signer or account. Not retryable with the same identity.
	CategoryAuthorization
	// CategoryStateConflict: stale view of the dare. Re-read state first.
	CategoryStateConflict
	// CategoryConstraint: account list failed structural validation.
	CategoryConstraint
	// CategoryRuntime: ledger level failure (funds, signatures, allocation).
	CategoryRuntime
)

func (c ErrorCategory) String() string {
	switch c {
	case CategoryInput:
		return "input"
	case CategoryAuthorization:
		return "authorization"
	case CategoryStateConflict:
		return "state-conflict"
	case CategoryConstraint:
		return "constraint"
	case CategoryRuntime:
		return "runtime"
	}
	return "unknown"
}

// Program error codes. Custom codes start at 6000.
const (
	ErrCodeInvalidAmount          ErrorCode = 6000
	ErrCodeDeadlinePassed         ErrorCode = 6001
	ErrCodeDeadlineTooFar         ErrorCode = 6002
	ErrCodeInvalidDareStatus      ErrorCode = 6003
	ErrCodeCannotAcceptOwnDare    ErrorCode = 6004
	ErrCodeUnauthorizedChallenger ErrorCode = 6005
	ErrCodeUnauthorizedDaree      ErrorCode = 6006
	ErrCodeDareExpired            ErrorCode = 6007
	ErrCodeDareNotExpired         ErrorCode = 6008
	ErrCodeDisputeWindowActive    ErrorCode = 6009
	ErrCodeInvalidDareType        ErrorCode = 6010
	ErrCodeArithmeticOverflow     ErrorCode = 6011
	ErrCodeMissingDareeStats      ErrorCode = 6012
	ErrCodeNotTargetedDare        ErrorCode = 6013
)

// Framework constraint codes.
const (
	ErrCodeInstructionFallbackNotFound  ErrorCode = 101
	ErrCodeInstructionDidNotDeserialize ErrorCode = 102
	ErrCodeConstraintMut                ErrorCode = 2000
	ErrCodeConstraintHasOne             ErrorCode = 2001
	ErrCodeConstraintSigner             ErrorCode = 2002
	ErrCodeConstraintSeeds              ErrorCode = 2006
	ErrCodeConstraintOwner              ErrorCode = 2004
	ErrCodeAccountDiscriminatorMismatch ErrorCode = 3002
	ErrCodeAccountDidNotDeserialize     ErrorCode = 3003
	ErrCodeAccountNotEnoughKeys         ErrorCode = 3005
	ErrCodeAccountNotInitialized        ErrorCode = 3012
)

// Runtime codes, outside the program's own range.
const (
	ErrCodeAccountAlreadyInUse ErrorCode = 9000
	ErrCodeInsufficientFunds   ErrorCode = 9001
	ErrCodeMissingSignature    ErrorCode = 9002
	ErrCodeInvalidProgramID    ErrorCode = 9003
)

type errorInfo struct {
	name     string
	msg      string
	category ErrorCategory
}

var errorTable = map[ErrorCode]errorInfo{
	ErrCodeInvalidAmount:          {"InvalidAmount", "Amount must be greater than zero", CategoryInput},
	ErrCodeDeadlinePassed:         {"DeadlinePassed", "Deadline must be in the future", CategoryInput},
	ErrCodeDeadlineTooFar:         {"DeadlineTooFar", "Deadline is too far in the future (max 30 days)", CategoryInput},
	ErrCodeInvalidDareStatus:      {"InvalidDareStatus", "Dare is not in the expected status", CategoryStateConflict},
	ErrCodeCannotAcceptOwnDare:    {"CannotAcceptOwnDare", "You cannot accept your own dare", CategoryAuthorization},
	ErrCodeUnauthorizedChallenger: {"UnauthorizedChallenger", "Only the challenger can perform this action", CategoryAuthorization},
	ErrCodeUnauthorizedDaree:      {"UnauthorizedDaree", "Only the daree can perform this action", CategoryAuthorization},
	ErrCodeDareExpired:            {"DareExpired", "The dare has expired", CategoryStateConflict},
	ErrCodeDareNotExpired:         {"DareNotExpired", "The dare has not expired yet", CategoryStateConflict},
	ErrCodeDisputeWindowActive:    {"DisputeWindowActive", "The dispute window has not passed yet", CategoryStateConflict},
	ErrCodeInvalidDareType:        {"InvalidDareType", "This dare type does not support this action", CategoryStateConflict},
	ErrCodeArithmeticOverflow:     {"ArithmeticOverflow", "Arithmetic overflow occurred", CategoryRuntime},
	ErrCodeMissingDareeStats:      {"MissingDareeStats", "Daree stats account is required but missing", CategoryConstraint},
	ErrCodeNotTargetedDare:        {"NotTargetedDare", "This dare does not have a target daree to refuse", CategoryStateConflict},

	ErrCodeInstructionFallbackNotFound:  {"InstructionFallbackNotFound", "Fallback functions are not supported", CategoryInput},
	ErrCodeInstructionDidNotDeserialize: {"InstructionDidNotDeserialize", "The program could not deserialize the given instruction", CategoryInput},
	ErrCodeConstraintMut:                {"ConstraintMut", "A mut constraint was violated", CategoryConstraint},
	ErrCodeConstraintHasOne:             {"ConstraintHasOne", "A has one constraint was violated", CategoryAuthorization},
	ErrCodeConstraintSigner:             {"ConstraintSigner", "A signer constraint was violated", CategoryAuthorization},
	ErrCodeConstraintOwner:              {"ConstraintOwner", "An owner constraint was violated", CategoryConstraint},
	ErrCodeConstraintSeeds:              {"ConstraintSeeds", "A seeds constraint was violated", CategoryConstraint},
	ErrCodeAccountDiscriminatorMismatch: {"AccountDiscriminatorMismatch", "Account discriminator did not match what was expected", CategoryConstraint},
	ErrCodeAccountDidNotDeserialize:     {"AccountDidNotDeserialize", "Failed to deserialize the account", CategoryConstraint},
	ErrCodeAccountNotEnoughKeys:         {"AccountNotEnoughKeys", "Not enough account keys given to the instruction", CategoryConstraint},
	ErrCodeAccountNotInitialized:        {"AccountNotInitialized", "The program expected this account to be already initialized", CategoryConstraint},

	ErrCodeAccountAlreadyInUse: {"AccountAlreadyInUse", "Account already in use", CategoryRuntime},
	ErrCodeInsufficientFunds:   {"InsufficientFunds", "Insufficient funds for transfer", CategoryRuntime},
	ErrCodeMissingSignature:    {"MissingSignature", "Missing or invalid transaction signature", CategoryAuthorization},
	ErrCodeInvalidProgramID:    {"InvalidProgramId", "Instruction targets an unknown program", CategoryInput},
}

// Name returns the symbolic name of the code.
func (c ErrorCode) Name() string {
	if info, ok := errorTable[c]; ok {
		return info.name
	}
	return fmt.Sprintf("Unknown(%d)", uint32(c))
}

// Message returns the human readable message for the code.
func (c ErrorCode) Message() string {
	return errorTable[c].msg
}

// Category returns the caller-facing class of the code.
func (c ErrorCode) Category() ErrorCategory {
	return errorTable[c].category
}

// ProgramError is returned when an instruction aborts.
type ProgramError struct {
	Code ErrorCode
	// Detail names the offending account or value, if any.
	Detail string
}

func (e *ProgramError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("program error %d (%s): %s: %s", uint32(e.Code), e.Code.Name(), e.Code.Message(), e.Detail)
	}
	return fmt.Sprintf("program error %d (%s): %s", uint32(e.Code), e.Code.Name(), e.Code.Message())
}

// Is matches any *ProgramError with the same code.
func (e *ProgramError) Is(target error) bool {
	var pe *ProgramError
	if errors.As(target, &pe) {
		return pe.Code == e.Code
	}
	return false
}

// NewProgramError builds an error for code with optional detail.
func NewProgramError(code ErrorCode, detail string) *ProgramError {
	return &ProgramError{Code: code, Detail: detail}
}

// ErrorFromCode maps a numeric code back into a ProgramError, or nil if unknown.
func ErrorFromCode(code uint32) *ProgramError {
	if _, ok := errorTable[ErrorCode(code)]; !ok {
		return nil
	}
	return &ProgramError{Code: ErrorCode(code)}
}

// CodeOf extracts the program error code from err.
func CodeOf(err error) (ErrorCode, bool) {
	var pe *ProgramError
	if errors.As(err, &pe) {
		return pe.Code, true
	}
	return 0, false
}

// Sentinels for use with errors.Is.
var (
	ErrInvalidAmount          = &ProgramError{Code: ErrCodeInvalidAmount}
	ErrDeadlinePassed         = &ProgramError{Code: ErrCodeDeadlinePassed}
	ErrDeadlineTooFar         = &ProgramError{Code: ErrCodeDeadlineTooFar}
	ErrInvalidDareStatus      = &ProgramError{Code: ErrCodeInvalidDareStatus}
	ErrCannotAcceptOwnDare    = &ProgramError{Code: ErrCodeCannotAcceptOwnDare}
	ErrUnauthorizedChallenger = &ProgramError{Code: ErrCodeUnauthorizedChallenger}
	ErrUnauthorizedDaree      = &ProgramError{Code: ErrCodeUnauthorizedDaree}
	ErrDareExpired            = &ProgramError{Code: ErrCodeDareExpired}
	ErrDareNotExpired         = &ProgramError{Code: ErrCodeDareNotExpired}
	ErrInvalidDareType        = &ProgramError{Code: ErrCodeInvalidDareType}
	ErrArithmeticOverflow     = &ProgramError{Code: ErrCodeArithmeticOverflow}
	ErrNotTargetedDare        = &ProgramError{Code: ErrCodeNotTargetedDare}

	ErrConstraintMut                = &ProgramError{Code: ErrCodeConstraintMut}
	ErrConstraintHasOne             = &ProgramError{Code: ErrCodeConstraintHasOne}
	ErrConstraintSigner             = &ProgramError{Code: ErrCodeConstraintSigner}
	ErrConstraintOwner              = &ProgramError{Code: ErrCodeConstraintOwner}
	ErrConstraintSeeds              = &ProgramError{Code: ErrCodeConstraintSeeds}
	ErrAccountDiscriminatorMismatch = &ProgramError{Code: ErrCodeAccountDiscriminatorMismatch}
	ErrAccountNotEnoughKeys         = &ProgramError{Code: ErrCodeAccountNotEnoughKeys}
	ErrAccountNotInitialized        = &ProgramError{Code: ErrCodeAccountNotInitialized}
	ErrInstructionDidNotDeserialize = &ProgramError{Code: ErrCodeInstructionDidNotDeserialize}
	ErrInstructionFallbackNotFound  = &ProgramError{Code: ErrCodeInstructionFallbackNotFound}

	ErrAccountAlreadyInUse = &ProgramError{Code: ErrCodeAccountAlreadyInUse}
	ErrInsufficientFunds   = &ProgramError{Code: ErrCodeInsufficientFunds}
	ErrMissingSignature    = &ProgramError{Code: ErrCodeMissingSignature}
	ErrInvalidProgramID    = &ProgramError{Code: ErrCodeInvalidProgramID}
)
