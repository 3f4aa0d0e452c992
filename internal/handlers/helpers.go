// Package handlers contains the JSON HTTP handlers of the admin API.
// Handlers validate and clamp request payloads at the boundary; derived
// amounts always come from the billing package via the services layer.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/rentledger/rentledger/internal/auth"
	"github.com/rentledger/rentledger/internal/gate"
	"github.com/rentledger/rentledger/internal/httpx"
	"github.com/rentledger/rentledger/internal/i18n"
	"github.com/rentledger/rentledger/internal/middleware"
)

// fail writes an error envelope with a machine code plus a message
// translated to the request's language preference.
func fail(w http.ResponseWriter, r *http.Request, status int, code string, details any) {
	httpx.JSON(w, status, map[string]any{
		"error":   code,
		"message": i18n.T(middleware.LangFrom(r), code),
		"details": details,
	})
}

// idFromQuery parses the numeric ?id= parameter, 0 meaning absent/invalid.
func idFromQuery(r *http.Request) uint {
	v := r.URL.Query().Get("id")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0
	}
	return uint(n)
}

// pagination reads limit/page query params with the usual caps.
func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}
	return limit, offset
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allow string) {
	w.Header().Set("Allow", allow)
	fail(w, r, http.StatusMethodNotAllowed, "method_not_allowed", nil)
}

// authorize runs a gate check for the session user and writes the error
// response itself. Returns true when the request may proceed.
func authorize(g *gate.Gate, w http.ResponseWriter, r *http.Request, action gate.Action, resource string) bool {
	uid, _ := auth.UserIDFromContext(r.Context())
	err := g.Authorize(r.Context(), uid, action, resource)
	switch {
	case err == nil:
		return true
	case errors.Is(err, gate.ErrUnauthorized):
		fail(w, r, http.StatusUnauthorized, "unauthorized", nil)
	case errors.Is(err, gate.ErrForbidden):
		fail(w, r, http.StatusForbidden, "forbidden", nil)
	default:
		fail(w, r, http.StatusInternalServerError, "internal_error", nil)
	}
	return false
}
