package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type HandlerFunc func(http.ResponseWriter, *http.Request)

type Router struct {
	mux    *http.ServeMux
	routes map[string]HandlerFunc // key = METHOD:PATH
	paths  map[string]bool        // track registered paths
}

func New() *Router {
	r := &Router{
		mux:    http.NewServeMux(),
		routes: make(map[string]HandlerFunc),
		paths:  make(map[string]bool),
	}

	// Catch-all handler for unknown paths
	r.mux.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		key := req.Method + ":" + req.URL.Path
		if h, ok := r.routes[key]; ok {
			h(lrw, req)
		} else {
			// Overlapping wildcard patterns are ranked by specificity, not
			// map order: /api/v1/models/*/matrix must win over the trailing
			// wildcard /api/v1/models/*.
			found := false
			bestScore := -1
			var best HandlerFunc
			for routePath := range r.paths {
				if strings.Contains(routePath, "/*") && matchWildcardRoute(req.URL.Path, routePath) {
					wildcardKey := req.Method + ":" + routePath
					if h, ok := r.routes[wildcardKey]; ok {
						if score := patternSpecificity(routePath); score > bestScore {
							bestScore = score
							best = h
						}
					}
				}
			}
			if best != nil {
				best(lrw, req)
				found = true
			}

			if !found {
				if _, pathExists := r.paths[req.URL.Path]; pathExists {
					http.Error(lrw, "Method Not Allowed", http.StatusMethodNotAllowed)
				} else {
					http.Error(lrw, "Not Found", http.StatusNotFound)
				}
			}
		}

		log.Info().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Int("status", lrw.statusCode).
			Dur("duration", time.Since(start)).
			Msg("request")
	})

	return r
}

// patternSpecificity ranks a route pattern: more literal segments win, and an
// exact segment count beats a trailing wildcard.
func patternSpecificity(routePattern string) int {
	segments := strings.Split(strings.Trim(routePattern, "/"), "/")
	score := 0
	for _, seg := range segments {
		if seg != "*" {
			score += 2
		}
	}
	if len(segments) == 0 || segments[len(segments)-1] != "*" {
		score++
	}
	return score
}

// matchWildcardRoute checks if a request path matches a wildcard route pattern.
func matchWildcardRoute(requestPath, routePattern string) bool {
	requestSegments := strings.Split(strings.Trim(requestPath, "/"), "/")
	routeSegments := strings.Split(strings.Trim(routePattern, "/"), "/")

	// A trailing wildcard matches any number of remaining segments.
	if len(routeSegments) > 0 && routeSegments[len(routeSegments)-1] == "*" {
		if len(requestSegments) < len(routeSegments)-1 {
			return false
		}
		for i := 0; i < len(routeSegments)-1; i++ {
			if requestSegments[i] != routeSegments[i] {
				return false
			}
		}
		return true
	}

	if len(requestSegments) != len(routeSegments) {
		return false
	}
	for i, routeSegment := range routeSegments {
		if routeSegment == "*" {
			continue
		}
		if requestSegments[i] != routeSegment {
			return false
		}
	}
	return true
}

func (r *Router) register(method, path string, handler HandlerFunc) {
	key := method + ":" + path
	r.routes[key] = handler
	r.paths[path] = true
}

func (r *Router) GET(path string, handler HandlerFunc)   { r.register(http.MethodGet, path, handler) }
func (r *Router) POST(path string, handler HandlerFunc)  { r.register(http.MethodPost, path, handler) }
func (r *Router) PUT(path string, handler HandlerFunc)   { r.register(http.MethodPut, path, handler) }
func (r *Router) PATCH(path string, handler HandlerFunc) { r.register(http.MethodPatch, path, handler) }
func (r *Router) DELETE(path string, handler HandlerFunc) {
	r.register(http.MethodDelete, path, handler)
}

// Getter methods for testing
func (r *Router) Routes() map[string]HandlerFunc {
	return r.routes
}

func (r *Router) Paths() map[string]bool {
	return r.paths
}

// ServeHTTP makes the router usable with httptest and custom servers.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Start runs the HTTP server on addr.
func (r *Router) Start(addr string) error {
	log.Info().Str("addr", addr).Msg("server started")
	return http.ListenAndServe(addr, r.mux)
}

// loggingResponseWriter captures status codes for request logging.
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}
