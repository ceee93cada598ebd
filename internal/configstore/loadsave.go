package configstore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pelletier/go-toml/v2/unstable"
	"gopkg.in/yaml.v3"
)

// ErrConfigInvalid matches every *ParseError and *ValidationError.
var ErrConfigInvalid = errors.New("invalid configuration")

// ParseError represents a TOML or YAML decode failure.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse config %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrConfigInvalid
}

// ValidationError lists every schema or invariant violation found in a file.
type ValidationError struct {
	Path     string
	Problems []string
}

func (e *ValidationError) Error() string {
	where := e.Path
	if where == "" {
		where = "configuration"
	}
	return fmt.Sprintf("invalid %s: %s", where, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrConfigInvalid
}

// Load reads the configuration file at path and resolves defaults against
// cwd, the host working directory.
func Load(path, cwd string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Decode(data, path, cwd)
}

// Decode parses data as TOML or YAML depending on the extension of path.
func Decode(data []byte, path, cwd string) (Config, error) {
	var (
		raw fileConfig
		env []EnvVar
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		raw, err = decodeYAML(data, path)
		env = raw.EnvYAML.vars
	default:
		raw, err = decodeTOML(data, path)
		if err == nil {
			env, err = orderTOMLEnv(data, path, raw.Env)
		}
	}
	if err != nil {
		return Config{}, err
	}

	cfg := raw.resolve(cwd, env)
	cfg.Source = path
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeTOML(data []byte, path string) (fileConfig, error) {
	var raw fileConfig
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		var strictErr *toml.StrictMissingError
		if errors.As(err, &strictErr) {
			return raw, &ValidationError{Path: path, Problems: []string{"unknown fields:\n" + strictErr.String()}}
		}
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return raw, &ParseError{Path: path, Err: fmt.Errorf("line %d column %d: %w", row, col, decodeErr)}
		}
		return raw, &ParseError{Path: path, Err: err}
	}
	return raw, nil
}

// orderTOMLEnv recovers the declaration order of the env table, which a map
// decode loses. Keys the scan cannot place are appended in sorted order.
func orderTOMLEnv(data []byte, path string, values map[string]string) ([]EnvVar, error) {
	if len(values) == 0 {
		return nil, nil
	}
	order, err := tomlEnvKeyOrder(data)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	out := make([]EnvVar, 0, len(values))
	placed := make(map[string]struct{}, len(values))
	for _, key := range order {
		value, ok := values[key]
		if !ok {
			continue
		}
		if _, dup := placed[key]; dup {
			continue
		}
		placed[key] = struct{}{}
		out = append(out, EnvVar{Key: key, Value: value})
	}

	var rest []string
	for key := range values {
		if _, ok := placed[key]; !ok {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		out = append(out, EnvVar{Key: key, Value: values[key]})
	}
	return out, nil
}

// tomlEnvKeyOrder walks the document's expressions and lists env keys in the
// order they are written. It understands an [env] table, dotted env.KEY keys
// at the root, and an inline env = { ... } table.
func tomlEnvKeyOrder(data []byte) ([]string, error) {
	var (
		p     unstable.Parser
		order []string
		table string
	)
	p.Reset(data)
	for p.NextExpression() {
		expr := p.Expression()
		switch expr.Kind {
		case unstable.Table, unstable.ArrayTable:
			table = strings.Join(keyParts(expr), ".")
		case unstable.KeyValue:
			parts := keyParts(expr)
			switch {
			case table == "env" && len(parts) == 1:
				order = append(order, parts[0])
			case table == "" && len(parts) == 2 && parts[0] == "env":
				order = append(order, parts[1])
			case table == "" && len(parts) == 1 && parts[0] == "env":
				value := expr.Value()
				if value.Kind != unstable.InlineTable {
					continue
				}
				children := value.Children()
				for children.Next() {
					child := children.Node()
					if child.Kind != unstable.KeyValue {
						continue
					}
					if childParts := keyParts(child); len(childParts) == 1 {
						order = append(order, childParts[0])
					}
				}
			}
		}
	}
	if err := p.Error(); err != nil {
		return nil, err
	}
	return order, nil
}

func keyParts(node *unstable.Node) []string {
	var parts []string
	it := node.Key()
	for it.Next() {
		parts = append(parts, string(it.Node().Data))
	}
	return parts
}

func decodeYAML(data []byte, path string) (fileConfig, error) {
	var raw fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return raw, &ParseError{Path: path, Err: err}
	}
	return raw, nil
}

// orderedEnv decodes a YAML mapping of strings while keeping key order.
type orderedEnv struct {
	vars []EnvVar
}

func (o *orderedEnv) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: env must be a mapping of strings", value.Line)
	}
	vars := make([]EnvVar, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]
		if val.Kind != yaml.ScalarNode || val.ShortTag() != "!!str" {
			return fmt.Errorf("line %d: env.%s must be a string (quote numbers and booleans)", val.Line, key.Value)
		}
		vars = append(vars, EnvVar{Key: key.Value, Value: val.Value})
	}
	o.vars = vars
	return nil
}
