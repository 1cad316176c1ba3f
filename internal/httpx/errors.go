package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-rental-orders.git/internal/rental"
)

// statusOf maps the engine's closed error set to transport status codes.
func statusOf(err error) int {
	switch {
	case rental.IsValidation(err):
		return http.StatusBadRequest
	case rental.IsNotFound(err):
		return http.StatusNotFound
	case rental.IsInsufficientStock(err), rental.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
