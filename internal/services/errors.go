package services

import "errors"

var (
	ErrInvalidAccount          = errors.New("invalid account")
	ErrNotAuthorized           = errors.New("not authorized for project")
	ErrInvalidTransactionShape = errors.New("invalid transaction")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrNotFound                = errors.New("not found")
	ErrAlreadyVerified         = errors.New("transaction already verified")
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrTokenRevoked            = errors.New("token revoked")
)
