package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/vitorwdson/hercules/internal/fault"
)

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeFault maps a classified operation error to its status code. Anything
// unclassified has already been rolled back and comes out as a generic 500.
func writeFault(w http.ResponseWriter, err error) {
	switch fault.KindOf(err) {
	case fault.KindForbidden:
		writeError(w, http.StatusForbidden, err.Error())
	case fault.KindInvalid:
		writeError(w, http.StatusBadRequest, err.Error())
	case fault.KindConflict:
		writeError(w, http.StatusConflict, err.Error())
	case fault.KindNotFound:
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "something went wrong")
	}
}
