package mcp

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// argumentGetter is satisfied by mcp.CallToolRequest.
type argumentGetter interface {
	GetArguments() map[string]any
}

// bindArgs decodes tool arguments into target using json tags. Clients
// sometimes send every value as a string, so numbers and booleans are
// weakly typed and JSON-encoded arrays or objects inside strings are
// unpacked.
func bindArgs[T any](request argumentGetter, target *T) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook:       jsonStringHook,
		Result:           target,
		TagName:          "json",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(request.GetArguments())
}

func jsonStringHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	switch to.Kind() {
	case reflect.Slice, reflect.Map, reflect.Struct:
	default:
		return data, nil
	}

	raw := strings.TrimSpace(data.(string))
	if !(strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]")) &&
		!(strings.HasPrefix(raw, "{") && strings.HasSuffix(raw, "}")) {
		return data, nil
	}

	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return data, nil
	}
	return decoded, nil
}

// clamp bounds v to [lo, hi], substituting def when v is unset.
func clamp(v, def, lo, hi int) int {
	if v == 0 {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
