package core

import (
	"encoding/json"
	"net/http"
)

const (
	CodeErrorNotFound       = "err_not_found"
	CodeErrorInvalidRequest = "err_invalid_input"
)

type jsonResponse struct {
	status int
	body   []byte
}

// JsonBasic contains the fields of short error responses.
type JsonBasic struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// precomputeBasicResponse marshals the body once at init so handlers only
// copy bytes.
func precomputeBasicResponse(status int, code, message string) jsonResponse {
	body, _ := json.Marshal(JsonBasic{Status: status, Code: code, Message: message})
	return jsonResponse{status: status, body: body}
}

var (
	errorNotFound       = precomputeBasicResponse(http.StatusNotFound, CodeErrorNotFound, "The requested resource was not found")
	errorInvalidRequest = precomputeBasicResponse(http.StatusBadRequest, CodeErrorInvalidRequest, "The request is invalid")
)

// HeadersJson are set on every JSON response.
var HeadersJson = map[string]string{
	"Content-Type": "application/json; charset=utf-8",

	// Ensure the browser respects the declared content type strictly.
	"X-Content-Type-Options": "nosniff",

	// Health and stats are live values.
	"Cache-Control": "no-store, no-cache, must-revalidate",

	"X-Frame-Options":         "DENY",
	"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
}

// setHeaders applies one or more sets of headers to the response writer.
// Later maps win on conflicting keys.
func setHeaders(w http.ResponseWriter, headers ...map[string]string) {
	for _, headerMap := range headers {
		for key, value := range headerMap {
			w.Header().Set(key, value)
		}
	}
}

// writeJsonError writes a precomputed JSON error response
func writeJsonError(w http.ResponseWriter, resp jsonResponse) {
	setHeaders(w, HeadersJson)
	w.WriteHeader(resp.status)
	w.Write(resp.body)
}

// writeJson marshals v before writing any header so that an encoding failure
// can still become a 500.
func writeJson(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	setHeaders(w, HeadersJson)
	w.WriteHeader(status)
	w.Write(body)
}
