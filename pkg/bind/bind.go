// Package bind decodes and validates an HTTP request body into a struct.
package bind

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/huertohogar/huerto/config"
	"github.com/huertohogar/huerto/pkg/validate"
)

// maxBodyBytes returns the configured request body size limit (default 1 MB).
func maxBodyBytes() int64 {
	n, err := strconv.ParseInt(config.Get("MAX_BODY_BYTES", "1048576"), 10, 64)
	if err != nil || n <= 0 {
		return 1 << 20
	}
	return n
}

// JSON decodes r.Body into dest and validates it.
// It returns (errs, nil) on validation failures and (nil, err) when the body
// is malformed or too large.
func JSON(w http.ResponseWriter, r *http.Request, dest interface{}) (validate.Errors, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes())

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, fmt.Errorf("cuerpo demasiado grande (máximo %d bytes)", maxErr.Limit)
		}
		return nil, fmt.Errorf("JSON inválido: %w", err)
	}

	return validate.Struct(dest), nil
}
