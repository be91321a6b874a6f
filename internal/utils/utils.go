package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

func GetRoutePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if pattern := rctx.RoutePattern(); pattern != "" {
		// Pattern is already available
		return pattern
	}

	routePath := r.URL.Path

	if r.URL.RawPath != "" {
		routePath = r.URL.RawPath
	}

	tctx := chi.NewRouteContext()
	if !rctx.Routes.Match(tctx, r.Method, routePath) {
		return "undefined"
	}

	// tctx has the updated pattern, since Match mutates it
	return tctx.RoutePattern()
}

// ConvertType marshals src to JSON and unmarshals it into D. Used to convert
// loosely-typed event payloads into their schema structs.
func ConvertType[S any, D any](src S) (D, error) {
	jsonBody, err := json.Marshal(src)
	if err != nil {
		return *new(D), fmt.Errorf("converting source into json: %w", err)
	}

	var dst D
	err = json.Unmarshal(jsonBody, &dst)
	if err != nil {
		return *new(D), fmt.Errorf("converting json into destination: %w", err)
	}

	return dst, nil
}

// GetTypeName receives any value and returns the name of its type without the package prefix.
func GetTypeName(v interface{}) string {
	if v == nil {
		return "<nil>"
	}

	fullTypeName := fmt.Sprintf("%T", v)

	if dotIndex := strings.LastIndex(fullTypeName, "."); dotIndex != -1 {
		return fullTypeName[dotIndex+1:]
	}

	return fullTypeName
}

// TruncateString returns the first n characters of the given string, appending "..." when truncated.
func TruncateString(str string, borderSizeToTruncate int) string {
	if len(str) <= borderSizeToTruncate {
		return str
	}
	return str[:borderSizeToTruncate] + "..."
}

// StringPtr returns a pointer to a string
func StringPtr(s string) *string {
	return &s
}

// IntPtr returns a pointer to an int
func IntPtr(i int) *int {
	return &i
}

func TimePtr(t time.Time) *time.Time {
	return &t
}
