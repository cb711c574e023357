package http

import (
	"encoding/json"
	nethttp "net/http"
)

func writeJSON(w nethttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errBody struct {
	Err string `json:"err"`
}

func writeErr(w nethttp.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errBody{Err: msg})
}
