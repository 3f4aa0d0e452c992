// Package i18n provides message translation for API error strings and
// Accept-Language detection. Lookup falls back to English, then to the
// message code itself, so a missing translation never breaks a response.
package i18n

import "strings"

const defaultLang = "en"

var translations = map[string]map[string]string{
	"en": {
		"required":                "Required",
		"invalid_json":            "Invalid JSON payload",
		"not_found":               "Not found",
		"unauthorized":            "Unauthorized",
		"forbidden":               "Forbidden",
		"method_not_allowed":      "Method not allowed",
		"validation_failed":       "Validation failed",
		"invoice_not_editable":    "Invoice can no longer be edited",
		"room_occupied":           "Room is already occupied",
		"payment_exceeds_balance": "Payment exceeds remaining balance",
	},
	"es": {
		"required":                "Obligatorio",
		"invalid_json":            "Carga JSON no válida",
		"not_found":               "No encontrado",
		"unauthorized":            "No autorizado",
		"forbidden":               "Prohibido",
		"method_not_allowed":      "Método no permitido",
		"validation_failed":       "Validación fallida",
		"invoice_not_editable":    "La factura ya no se puede editar",
		"room_occupied":           "La habitación ya está ocupada",
		"payment_exceeds_balance": "El pago supera el saldo pendiente",
	},
}

// Supported reports whether lang has a translation table.
func Supported(lang string) bool {
	_, ok := translations[lang]
	return ok
}

// DetectLanguage picks a supported language from an Accept-Language header.
// Only the primary subtag of each entry is considered.
func DetectLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(part)
		if i := strings.IndexAny(tag, "-;"); i > 0 {
			tag = tag[:i]
		}
		tag = strings.ToLower(tag)
		if Supported(tag) {
			return tag
		}
	}
	return defaultLang
}

// T translates a message code. Unknown languages fall back to English;
// unknown codes fall back to the code itself.
func T(lang, code string) string {
	if m, ok := translations[lang]; ok {
		if s, ok := m[code]; ok {
			return s
		}
	}
	if s, ok := translations[defaultLang][code]; ok {
		return s
	}
	return code
}
