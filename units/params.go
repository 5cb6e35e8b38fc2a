package units

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/kbukum/flowkit/validation"
)

// decode copies definition params into out and validates the result.
// Unknown keys are rejected so typos in flow files fail at build time.
func decode(component string, params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("%s params: %w", component, err)
	}
	if err := validation.Validate(out); err != nil {
		return fmt.Errorf("%s params: %w", component, err)
	}
	return nil
}

// asInt accepts the numeric types produced by YAML and JSON decoding.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), n == float64(int(n))
	default:
		return 0, false
	}
}
