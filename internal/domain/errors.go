package domain

import (
	"fmt"
	"strings"
)

// AuthError means the account cannot produce a valid access token. It is
// fatal for the current run: a revoked refresh token cannot self-heal.
type AuthError struct {
	AccountID int
	Reason    string
	Err       error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth failed for account %d: %s: %v", e.AccountID, e.Reason, e.Err)
	}
	return fmt.Sprintf("auth failed for account %d: %s", e.AccountID, e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// SelectionError means no leaf category cleared the confidence bar for a
// product. Per-product: the batch continues.
type SelectionError struct {
	SKU    string
	Reason string
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("category selection failed for %s: %s", e.SKU, e.Reason)
}

// RequirementsError lists the required aspects that could not be filled.
type RequirementsError struct {
	CategoryID string
	Unmet      []string
}

func (e *RequirementsError) Error() string {
	return fmt.Sprintf("category %s: required aspects unmet: %s",
		e.CategoryID, strings.Join(e.Unmet, ", "))
}

// PublishError is a failure from one of the three listing calls.
type PublishError struct {
	SKU   string
	Stage string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("listing %s failed at %s: %v", e.SKU, e.Stage, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }
