// Package api holds response types shared by the HTTP handlers of all features.
package api

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

