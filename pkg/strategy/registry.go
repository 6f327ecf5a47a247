package strategy

import (
	"fmt"
	"sort"

	"github.com/go-viper/mapstructure/v2"
)

type factory func(params map[string]any) (Scorer, error)

var registry = map[string]factory{
	PriceToSMARatioName: func(params map[string]any) (Scorer, error) {
		p := DefaultPriceToSMARatioParams()
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return NewPriceToSMARatio(p)
	},
	RelativeMomentumName: func(params map[string]any) (Scorer, error) {
		p := DefaultLookbackParams()
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return NewRelativeMomentum(p)
	},
	FIPName: func(params map[string]any) (Scorer, error) {
		p := DefaultFIPParams()
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return NewFIP(p)
	},
}

// New builds the named strategy. Params override the strategy defaults; values
// are weakly typed so that "50" and 50.0 both decode into an int field, while
// unknown keys are rejected.
func New(name string, params map[string]any) (Scorer, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownStrategy, name, Names())
	}
	return f(params)
}

// Names lists the registered strategies in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func decode(params map[string]any, out any) error {
	if len(params) == 0 {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if err := decoder.Decode(params); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}
