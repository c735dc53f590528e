package handlers

import (
	"encoding/json"
	"errors"
	"fleet-agent-service/internal/domain"
	"io"
	"log"
	"net/http"
)

// maxBodyBytes caps command bodies; every request DTO is small.
const maxBodyBytes = 64 << 10

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode failed: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

// decodeJSON reads exactly one JSON object with no unknown fields into v.
// It writes the 400 response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return false
	}
	return true
}

// writeDomainError maps the world model's error taxonomy to HTTP statuses.
func writeDomainError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var (
		ve  *domain.ValidationError
		dle *domain.DuplicateLoadError
		npe *domain.NoPathError
	)

	switch {
	case errors.Is(err, domain.ErrTruckNotFound), errors.Is(err, domain.ErrLoadNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.As(err, &dle), errors.Is(err, domain.ErrDuplicateTruck):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.As(err, &ve) && ve.Action != "":
		// A well-formed decision the world refused in its current state.
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &ve), errors.As(err, &npe), errors.Is(err, domain.ErrUnknownNode):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		log.Printf("%s failed: %v", op, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}
