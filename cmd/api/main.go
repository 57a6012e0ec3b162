// cmd/api/main.go
package main

import (
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
)

func main() {
	matchingServiceURL, _ := url.Parse(getEnv("MATCHING_SERVICE_URL", "http://localhost:8081"))
	applicationsServiceURL, _ := url.Parse(getEnv("APPLICATIONS_SERVICE_URL", "http://localhost:8082"))

	matchingProxy := httputil.NewSingleHostReverseProxy(matchingServiceURL)
	applicationsProxy := httputil.NewSingleHostReverseProxy(applicationsServiceURL)

	http.Handle("/api/v1/matching/", http.StripPrefix("/api/v1/matching", matchingProxy))
	http.Handle("/api/v1/applications/", http.StripPrefix("/api/v1/applications", applicationsProxy))

	port := getEnv("PORT", "8080")
	log.Printf("API Gateway listening on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, nil))
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
