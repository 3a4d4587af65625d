package deployconfig

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"
)

// DefaultFileName is the deploy file read from the working directory.
const DefaultFileName = "pcc-deploy.toml"

// fileLayout is the on-disk shape of the deploy file.
type fileLayout struct {
	AgentName         *string        `mapstructure:"agent_name"`
	Image             *string        `mapstructure:"image"`
	ImageCredentials  *string        `mapstructure:"image_credentials"`
	SecretSet         *string        `mapstructure:"secret_set"`
	Region            *string        `mapstructure:"region"`
	EnableManagedKeys *bool          `mapstructure:"enable_managed_keys"`
	EnableKrisp       *bool          `mapstructure:"enable_krisp"`
	AgentProfile      *string        `mapstructure:"agent_profile"`
	Scaling           *fileScaling   `mapstructure:"scaling"`
	KrispViva         *fileKrispViva `mapstructure:"krisp_viva"`
}

// fileScaling accepts the current min_agents/max_agents spelling and the
// older min_instances/max_instances one.
type fileScaling struct {
	MinAgents    *int `mapstructure:"min_agents"`
	MaxAgents    *int `mapstructure:"max_agents"`
	MinInstances *int `mapstructure:"min_instances"`
	MaxInstances *int `mapstructure:"max_instances"`
}

type fileKrispViva struct {
	AudioFilter *string `mapstructure:"audio_filter"`
}

// LoadFile reads the deploy file at path into a raw key tree. A missing or
// unreadable file is an absent layer and yields (nil, nil); a file that is
// not valid TOML is a ConfigError.
func LoadFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil
	}
	raw := map[string]any{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return nil, &ConfigError{Reason: fmt.Sprintf("parse %s at line %d column %d", path, row, col), Err: err}
		}
		return nil, &ConfigError{Reason: "parse " + path, Err: err}
	}
	return raw, nil
}

// FromMap binds a raw key tree to a Partial. Unknown keys and values of the
// wrong type are rejected; every unknown key is reported, not just the first.
func FromMap(raw map[string]any) (*Partial, error) {
	if raw == nil {
		return &Partial{}, nil
	}

	var layout fileLayout
	var meta mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     &layout,
		Metadata:   &meta,
		DecodeHook: rejectFloatToInt,
	})
	if err != nil {
		return nil, fmt.Errorf("build deploy file decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, &ConfigError{Reason: "wrong value type", Keys: decodeErrorKeys(err), Err: err}
	}
	if len(meta.Unused) > 0 {
		keys := append([]string(nil), meta.Unused...)
		sort.Strings(keys)
		return nil, &ConfigError{Reason: "unknown keys", Keys: keys}
	}
	return layout.partial()
}

var errFloatForInteger = errors.New("expected an integer, got a float")

// rejectFloatToInt stops mapstructure from truncating a TOML float such as
// 2.9 into an integer field.
func rejectFloatToInt(from, to reflect.Type, data any) (any, error) {
	switch from.Kind() {
	case reflect.Float32, reflect.Float64:
	default:
		return data, nil
	}
	if to.Kind() == reflect.Pointer {
		to = to.Elem()
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return nil, fmt.Errorf("%w (%v)", errFloatForInteger, data)
	}
	return data, nil
}

// decodeErrorKeys collects the sorted field names of every decode failure
// joined into err.
func decodeErrorKeys(err error) []string {
	var keys []string
	var walk func(error)
	walk = func(err error) {
		var decodeErr *mapstructure.DecodeError
		switch e := err.(type) {
		case nil:
			return
		case interface{ Unwrap() []error }:
			for _, inner := range e.Unwrap() {
				walk(inner)
			}
			return
		}
		if errors.As(err, &decodeErr) && decodeErr.Name() != "" {
			keys = append(keys, decodeErr.Name())
		}
	}
	walk(err)
	sort.Strings(keys)
	return keys
}

func (l fileLayout) partial() (*Partial, error) {
	p := &Partial{
		AgentName:         l.AgentName,
		Image:             l.Image,
		ImageCredentials:  l.ImageCredentials,
		SecretSet:         l.SecretSet,
		EnableManagedKeys: l.EnableManagedKeys,
		EnableKrisp:       l.EnableKrisp,
		AgentProfile:      l.AgentProfile,
	}
	if l.Region != nil {
		region := Region(*l.Region)
		p.Region = &region
	}
	if l.KrispViva != nil && l.KrispViva.AudioFilter != nil {
		p.KrispViva = &KrispViva{AudioFilter: AudioFilter(*l.KrispViva.AudioFilter)}
	}
	if s := l.Scaling; s != nil {
		if s.MinAgents != nil && s.MinInstances != nil {
			return nil, invalid("set only one of min_agents and min_instances", "scaling.min_agents", "scaling.min_instances")
		}
		if s.MaxAgents != nil && s.MaxInstances != nil {
			return nil, invalid("set only one of max_agents and max_instances", "scaling.max_agents", "scaling.max_instances")
		}
		p.Scaling.MinInstances = firstSet(s.MinAgents, s.MinInstances)
		p.Scaling.MaxInstances = firstSet(s.MaxAgents, s.MaxInstances)
	}
	return p, nil
}

func firstSet(values ...*int) *int {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// Load reads and binds the deploy file at path. A missing file yields an
// empty layer.
func Load(path string) (*Partial, error) {
	raw, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return FromMap(raw)
}
