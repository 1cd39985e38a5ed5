package client

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/authbridge/session-gateway/internal/auth/types"
)

// ExtractToken evaluates a structured pointer path against a sign-in
// response body and returns the credential it locates.
//
// The pointer is a sequence of /-separated property or array-index steps:
// "/token" selects body.token, "/data/tokens/0" selects the first element
// of body.data.tokens. The root pointer "/" (or "") selects the whole
// body, which must then itself be a JSON string or number. The RFC 6901
// escapes ~0 and ~1 are honored inside steps.
func ExtractToken(body []byte, pointer string) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", &types.TokenExtractionError{Pointer: pointer, Reason: "response body is not valid JSON"}
	}

	var result gjson.Result
	if isRootPointer(pointer) {
		result = gjson.ParseBytes(body)
	} else {
		path, err := pointerToPath(pointer)
		if err != nil {
			return "", &types.TokenExtractionError{Pointer: pointer, Reason: err.Error()}
		}
		result = gjson.GetBytes(body, path)
	}

	if !result.Exists() && !isRootPointer(pointer) {
		return "", &types.TokenExtractionError{Pointer: pointer}
	}

	switch result.Type {
	case gjson.String:
		if result.Str == "" {
			return "", &types.TokenExtractionError{Pointer: pointer, Reason: "resolved to an empty string"}
		}
		return result.Str, nil
	case gjson.Number:
		return result.Raw, nil
	default:
		return "", &types.TokenExtractionError{Pointer: pointer, Reason: "resolved value is not a string"}
	}
}

func isRootPointer(pointer string) bool {
	return pointer == "" || pointer == "/"
}

// pointerToPath converts a structured pointer ("/a/b/0") to a gjson path
// ("a.b.0"), escaping characters gjson treats specially.
func pointerToPath(pointer string) (string, error) {
	if !strings.HasPrefix(pointer, "/") {
		return "", &pointerSyntaxError{pointer}
	}

	steps := strings.Split(pointer[1:], "/")
	parts := make([]string, 0, len(steps))
	for _, step := range steps {
		// RFC 6901 escape order: ~1 before ~0.
		step = strings.ReplaceAll(step, "~1", "/")
		step = strings.ReplaceAll(step, "~0", "~")
		parts = append(parts, escapeGJSONKey(step))
	}
	return strings.Join(parts, "."), nil
}

func escapeGJSONKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

type pointerSyntaxError struct {
	pointer string
}

func (e *pointerSyntaxError) Error() string {
	return "pointer must start with '/': " + e.pointer
}
