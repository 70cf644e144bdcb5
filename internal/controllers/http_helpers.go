package controllers

import (
	"errors"
	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"net/http"
	"viewguard/internal/providers"
)

const maxRequestBodySize = 1 << 20 // 1 MB

var validate = validator.New()

var errBadRequest = errors.New("invalid request body")

type errorResponse struct {
	Error  string            `json:"error"`
	Reason string            `json:"reason,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// decodeAndValidate reads a bounded JSON body into dst and validates it.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errBadRequest
	}
	return validate.Struct(dst)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	gson, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

// writeRequestError answers a decode or validation failure with 400.
func writeRequestError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: "BAD_REQUEST"}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		resp.Fields = make(map[string]string, len(ve))
		for _, fe := range ve {
			resp.Fields[fe.Field()] = fe.Tag()
		}
	}
	writeJSON(w, http.StatusBadRequest, resp)
}

// writeInternalError logs err and answers with a sanitized 500.
func writeInternalError(w http.ResponseWriter, r *http.Request, logger providers.Logger, err error) {
	logger.Errorf(providers.GetLogTypeByRequestType(r.Method), "%s %s failed: %v", r.Method, r.URL.Path, err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "INTERNAL_ERROR"})
}
