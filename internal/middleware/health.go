package middleware

import (
	"encoding/json"
	"net/http"
)

// HealthStatus is the static liveness body
type HealthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// HealthHandler reports the service as active. It checks no dependencies.
func HealthHandler(serviceName string) http.HandlerFunc {
	body, _ := json.Marshal(HealthStatus{Status: "active", Service: serviceName})
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}
