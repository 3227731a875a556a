package domain

import "errors"

// Domain errors
var (
	ErrNotFound             = errors.New("resource not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInternalError        = errors.New("internal error")
	ErrUnknownCategory      = errors.New("unknown category")
	ErrCategoryExists       = errors.New("category already exists")
	ErrInvalidCategoryID    = errors.New("invalid category id")
	ErrInvalidType          = errors.New("invalid classification type")
	ErrInvalidTransaction   = errors.New("invalid transaction")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrTransactionExists    = errors.New("transaction already exists")
	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountExists        = errors.New("account already exists")
	ErrReservedAccount      = errors.New("account id is reserved")
	ErrNameRequired         = errors.New("name is required")
	ErrNameTooLong          = errors.New("name exceeds maximum length")
	ErrInvalidMonthKey      = errors.New("invalid month key")
	ErrInvalidDate          = errors.New("invalid date")
	ErrExtractionFailed     = errors.New("receipt extraction failed")
	ErrExtractionSuperseded = errors.New("receipt extraction superseded")
	ErrMigrationAmbiguous   = errors.New("starting balance stored in more than one shape")
)

// Validation constants
const (
	MaxAccountNameLength  = 255
	MaxCategoryNameLength = 100
	MaxDescriptionLength  = 255
	MaxNotesLength        = 2000
)
