package filter

import (
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
)

// Filter names as used on the command line and in params files.
const (
	AlienName          = "alien"
	BigEyesName        = "big_eyes"
	BigMouthName       = "big_mouth"
	CubeHeadName       = "cube_head"
	GiantForeheadName  = "giant_forehead"
	PermanentSmileName = "permanent_smile"
	PinocchioName      = "pinocchio"
	SharpChinName      = "sharp_chin"
	SquirrelCheeksName = "squirrel_cheeks"
)

// ErrUnknownFilter is returned by New for names that are not registered.
var ErrUnknownFilter = errors.New("unknown filter")

type constructor func(raw map[string]any, opts Options) (WarpFilter, error)

var constructors = map[string]constructor{
	AlienName: func(raw map[string]any, opts Options) (WarpFilter, error) {
		p := DefaultAlienParams()
		if err := DecodeParams(raw, &p); err != nil {
			return nil, err
		}
		return NewAlien(p, opts), nil
	},
	BigEyesName: func(raw map[string]any, opts Options) (WarpFilter, error) {
		p := DefaultBigEyesParams()
		if err := DecodeParams(raw, &p); err != nil {
			return nil, err
		}
		return NewBigEyes(p, opts), nil
	},
	BigMouthName: func(raw map[string]any, opts Options) (WarpFilter, error) {
		p := DefaultBigMouthParams()
		if err := DecodeParams(raw, &p); err != nil {
			return nil, err
		}
		return NewBigMouth(p, opts), nil
	},
	CubeHeadName: func(raw map[string]any, opts Options) (WarpFilter, error) {
		p := DefaultCubeHeadParams()
		if err := DecodeParams(raw, &p); err != nil {
			return nil, err
		}
		return NewCubeHead(p, opts), nil
	},
	GiantForeheadName: func(raw map[string]any, opts Options) (WarpFilter, error) {
		p := DefaultGiantForeheadParams()
		if err := DecodeParams(raw, &p); err != nil {
			return nil, err
		}
		return NewGiantForehead(p, opts), nil
	},
	PermanentSmileName: func(raw map[string]any, opts Options) (WarpFilter, error) {
		p := DefaultPermanentSmileParams()
		if err := DecodeParams(raw, &p); err != nil {
			return nil, err
		}
		return NewPermanentSmile(p, opts), nil
	},
	PinocchioName: func(raw map[string]any, opts Options) (WarpFilter, error) {
		p := DefaultPinocchioParams()
		if err := DecodeParams(raw, &p); err != nil {
			return nil, err
		}
		return NewPinocchio(p, opts), nil
	},
	SharpChinName: func(raw map[string]any, opts Options) (WarpFilter, error) {
		p := DefaultSharpChinParams()
		if err := DecodeParams(raw, &p); err != nil {
			return nil, err
		}
		return NewSharpChin(p, opts), nil
	},
	SquirrelCheeksName: func(raw map[string]any, opts Options) (WarpFilter, error) {
		p := DefaultSquirrelCheeksParams()
		if err := DecodeParams(raw, &p); err != nil {
			return nil, err
		}
		return NewSquirrelCheeks(p, opts), nil
	},
}

// Names lists the registered filters in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the named filter. raw overrides the filter defaults and may be
// nil; unknown keys and out-of-range values are errors.
func New(name string, raw map[string]any, opts Options) (WarpFilter, error) {
	c, ok := constructors[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownFilter, "%q", name)
	}
	opts = opts.withDefaults()
	f, err := c(raw, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to configure %s", name)
	}
	opts.Logger.Debugw("filter created", "filter", name, "overrides", len(raw))
	return f, nil
}

// NewChain builds one filter per name, each with its own overrides from
// params.
func NewChain(names []string, params map[string]map[string]any, opts Options) (Chain, error) {
	chain := make(Chain, 0, len(names))
	for _, name := range names {
		f, err := New(name, params[name], opts)
		if err != nil {
			return nil, err
		}
		chain = append(chain, f)
	}
	return chain, nil
}

var validate = validator.New()

// DecodeParams decodes raw over the defaults already in params, which must be
// a pointer to a params struct, and validates the result.
func DecodeParams(raw map[string]any, params any) error {
	if len(raw) > 0 {
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
			ErrorUnused:      true,
			WeaklyTypedInput: true,
			Result:           params,
		})
		if err != nil {
			return err
		}
		if err := decoder.Decode(raw); err != nil {
			return errors.Wrap(err, "failed to decode params")
		}
	}
	if err := validate.Struct(params); err != nil {
		return errors.Wrap(err, "invalid params")
	}
	return nil
}
