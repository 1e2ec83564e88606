package middleware

import (
	"net/http"
	"path"
	"strings"
)

// ImageValidation restricts which object keys may be requested under Prefix.
type ImageValidation struct {
	Prefix string
	// AllowedExtensions lists lower-case extensions including the dot.
	// An empty list allows any extension.
	AllowedExtensions []string
}

func (v ImageValidation) check(key string) (int, string) {
	if key == "" {
		return http.StatusBadRequest, "invalid path: object key required"
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." || segment == "." {
			return http.StatusBadRequest, "invalid path: relative segments not allowed"
		}
	}
	if len(v.AllowedExtensions) == 0 {
		return 0, ""
	}
	ext := strings.ToLower(path.Ext(key))
	for _, allowed := range v.AllowedExtensions {
		if ext == strings.ToLower(strings.TrimSpace(allowed)) {
			return 0, ""
		}
	}
	return http.StatusNotFound, "unsupported image type"
}

// WithImageValidation rejects image requests with malformed keys, unsupported
// extensions or non-read methods before they reach storage.
func WithImageValidation(v ImageValidation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, v.Prefix) {
				next.ServeHTTP(w, r)
				return
			}

			switch r.Method {
			case http.MethodGet, http.MethodHead:
			default:
				w.Header().Set("Allow", "GET, HEAD")
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}

			if code, msg := v.check(strings.TrimPrefix(r.URL.Path, v.Prefix)); code != 0 {
				http.Error(w, msg, code)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
