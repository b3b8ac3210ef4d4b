package httpadapter

import (
	"net/http"

	"github.com/msanchezp/lexrag/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidFormat):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrMissingGoldLabel):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrCitationNotFound):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrNoEvidence):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
