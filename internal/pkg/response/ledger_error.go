package response

import (
	"errors"

	"farmoracle-backend/internal/domain"

	"github.com/gofiber/fiber/v2"
)

var kindStatus = map[string]int{
	domain.KindInvalidArgument:     fiber.StatusBadRequest,
	domain.KindNotFound:            fiber.StatusNotFound,
	domain.KindAlreadySold:         fiber.StatusConflict,
	domain.KindInsufficientPayment: fiber.StatusPaymentRequired,
	domain.KindSelfPurchase:        fiber.StatusForbidden,
}

// LedgerError writes err with the status for its ledger error kind. Errors
// outside the ledger taxonomy are handed back for the global error handler.
func LedgerError(c *fiber.Ctx, err error) error {
	kind := domain.ErrorKind(err)
	code, ok := kindStatus[kind]
	if !ok {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return fe
		}
		return err
	}
	return Error(c, err.Error(), code, fiber.Map{"kind": kind})
}
