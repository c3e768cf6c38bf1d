package handlers

import (
	"net/http"
	"time"

	"gorm.io/gorm"
)

type healthCheckResponse struct {
	Status           string            `json:"status"`
	Database         string            `json:"database"`
	ExternalServices map[string]string `json:"external_services"`
}

// HealthCheckHandler checks API health, database connection, and the
// classifier service
func HealthCheckHandler(db *gorm.DB, classifierURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := healthCheckResponse{
			Status:           "API is running",
			ExternalServices: make(map[string]string),
		}

		sqlDB, err := db.DB()
		if err != nil || sqlDB.Ping() != nil {
			response.Database = "Database connection failed"
			respondWithJSON(w, http.StatusInternalServerError, response)
			return
		}
		response.Database = "Database connection is healthy"

		response.ExternalServices["Classifier"] = checkExternalService(classifierURL + "/health")

		respondWithJSON(w, http.StatusOK, response)
	}
}

// checkExternalService checks the status of an external service
func checkExternalService(url string) string {
	client := http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return "Unreachable"
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return "Available"
	}
	return "Unavailable"
}
