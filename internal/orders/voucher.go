package orders

import (
	"strings"

	"github.com/google/uuid"

	"github.com/resgatesabor/resgatesabor-backend/pkg/db/models"
	pkgerrors "github.com/resgatesabor/resgatesabor-backend/pkg/errors"
)

// DisplayPrefix is what customers see in front of every voucher code.
const DisplayPrefix = "#RS-"

// DefaultVoucherLength is the number of UUID hex characters shown.
const DefaultVoucherLength = 4

// FormatVoucher renders the customer-facing code for an order ID.
func FormatVoucher(id uuid.UUID, length int) string {
	if length <= 0 {
		length = DefaultVoucherLength
	}
	hex := strings.ReplaceAll(id.String(), "-", "")
	if length > len(hex) {
		length = len(hex)
	}
	return DisplayPrefix + strings.ToUpper(hex[:length])
}

// VoucherPrefix returns the bare uppercase hex prefix without decoration.
func VoucherPrefix(id uuid.UUID, length int) string {
	return strings.TrimPrefix(FormatVoucher(id, length), DisplayPrefix)
}

// NormalizeVoucher strips the display decoration and case-folds the code.
// Merchants type these by hand, so "#rs-3f2a", "RS-3F2A", and "3f2a" are all
// the same voucher.
func NormalizeVoucher(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	code = strings.TrimPrefix(code, "#")
	code = strings.TrimPrefix(code, "RS-")
	if code == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "voucher code required")
	}
	for _, r := range code {
		isHex := (r >= '0' && r <= '9') || (r >= 'A' && r <= 'F')
		if !isHex {
			return "", pkgerrors.New(pkgerrors.CodeInvalidVoucher, "voucher code is not a valid prefix")
		}
	}
	return code, nil
}

// MatchVoucher scans the candidate orders for exactly one whose UUID starts
// with the normalized code. Zero matches is InvalidVoucher; more than one is
// AmbiguousVoucher, surfaced rather than guessed.
func MatchVoucher(candidates []models.Order, code string) (*models.Order, error) {
	var matched *models.Order
	for i := range candidates {
		prefix := VoucherPrefix(candidates[i].ID, len(code))
		if prefix != code {
			continue
		}
		if matched != nil {
			return nil, pkgerrors.New(pkgerrors.CodeAmbiguousVoucher, "voucher matches more than one pending order")
		}
		matched = &candidates[i]
	}
	if matched == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidVoucher, "no pending order matches this voucher")
	}
	return matched, nil
}

// HasVoucherCollision reports whether any order in the list shares the given
// prefix. The checkout builder uses this at generation time to regenerate the
// order ID instead of shipping a code that would be ambiguous at the counter.
func HasVoucherCollision(existing []models.Order, candidate uuid.UUID, length int) bool {
	prefix := VoucherPrefix(candidate, length)
	for i := range existing {
		if existing[i].ID == candidate {
			continue
		}
		if VoucherPrefix(existing[i].ID, length) == prefix {
			return true
		}
	}
	return false
}
