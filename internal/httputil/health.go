package httputil

import "net/http"

// HealthHandler answers liveness probes.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// ReadinessHandler answers readiness probes; a non-nil error from check
// reports 503.
func ReadinessHandler(check func() error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(); err != nil {
				RespondProblem(w, r, http.StatusServiceUnavailable, err.Error())
				return
			}
		}
		RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
}

// VersionHandler reports build information.
func VersionHandler(service, version, commit, buildDate string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		RespondJSON(w, http.StatusOK, map[string]string{
			"service":   service,
			"version":   version,
			"commit":    commit,
			"buildDate": buildDate,
		})
	})
}
