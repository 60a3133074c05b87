package common

import (
	"encoding/json"
	"net/http"
)

// RespondJSON writes data as a JSON response. Payloads go out exactly as
// given; there is no envelope, the frontend consumes the raw shapes.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// ParseJSONBody decodes a JSON request body into v, capped at maxBytes so a
// client cannot stream an unbounded payload into memory. Unknown fields are
// tolerated; the frontend sends supersets of some request shapes.
func ParseJSONBody(r *http.Request, v interface{}, maxBytes int64) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)
	return json.NewDecoder(r.Body).Decode(v)
}
