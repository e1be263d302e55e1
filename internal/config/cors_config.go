package config

import (
	"net/http"
	"strings"
)

type Cors struct {
	src *source
}

var _ CorsConfig = Cors{}

func (c Cors) GetAllowedOrigins() []string {
	raw := c.src.get("CORS_ORIGINS", "")
	if raw == "" {
		return nil
	}
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func (Cors) GetAllowedMethods() []string {
	return []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}
}

func (Cors) GetAllowedHeaders() []string {
	return []string{"Content-Type", "Authorization", "HX-Request", "X-Request-ID"}
}
