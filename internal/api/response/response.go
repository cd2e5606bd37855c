package response

import (
	"encoding/json"
	"net/http"

	"github.com/edvin/drfailover/internal/model"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// WriteResult writes a failover result using its own status code.
func WriteResult(w http.ResponseWriter, result model.Result) {
	status := result.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	WriteJSON(w, status, result)
}
