// Package web has the shared JSON response helpers. Error bodies are either
// {"message": string} or {"errors": [...]} for field validation failures.
package web

import (
	"encoding/json"
	"log"
	"net/http"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Message writes a {"message": ...} body.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"message": msg})
}

// ValidationErrors writes a 400 with the per-field messages.
func ValidationErrors(w http.ResponseWriter, errs []string) {
	JSON(w, http.StatusBadRequest, map[string][]string{"errors": errs})
}

// ServerError logs the underlying error and returns a generic 500. Internals
// never reach the caller.
func ServerError(w http.ResponseWriter, err error) {
	log.Printf("server error: %v", err)
	Message(w, http.StatusInternalServerError, "Server error")
}
