// Package endpoints holds the HTTP handlers for the deal server: proposal
// evaluation, pricing quotes and displays, audience validation, and the
// capability discovery report.
package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/golang/glog"
)

// errorResponse is the body returned for any handler-level failure.
type errorResponse struct {
	Status string `json:"status"`
}

func writeError(w http.ResponseWriter, code int, msg string, err error) {
	resp := errorResponse{Status: msg}
	if err != nil {
		resp.Status = fmt.Sprintf("%s: %v", msg, err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if encodeErr := json.NewEncoder(w).Encode(resp); encodeErr != nil {
		glog.Errorf("Failed to marshal error JSON: %v", encodeErr)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	out, err := json.Marshal(v)
	if err != nil {
		glog.Errorf("Critical error when trying to marshal response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(out)
}
