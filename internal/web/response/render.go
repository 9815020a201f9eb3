// Package response renders endpoint results and failures.
package response

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// RenderJSON renders v as a JSON body with statusCode. The value is marshaled
// before anything is written so a marshal failure leaves the response
// untouched.
func RenderJSON(w http.ResponseWriter, statusCode int, v any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_, err := w.Write(buf.Bytes())
	return err
}

// RenderEmpty sends statusCode with no body
func RenderEmpty(w http.ResponseWriter, statusCode int) {
	w.WriteHeader(statusCode)
}
