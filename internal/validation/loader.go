package validation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/packhooks/internal/hooks"
)

// LoadFunc resolves a schema reference to a decoded JSON value.
type LoadFunc func(ctx context.Context, ref hooks.SchemaRef) (any, error)

// NewLoader returns a LoadFunc reading embedded schemas from ref.FS and
// everything else from disk, relative to root.
func NewLoader(root string) LoadFunc {
	return func(ctx context.Context, ref hooks.SchemaRef) (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var (
			raw []byte
			err error
		)
		if ref.FS != nil {
			raw, err = fs.ReadFile(ref.FS, ref.Path)
		} else {
			path := ref.Path
			if !filepath.IsAbs(path) {
				path = filepath.Join(root, path)
			}
			raw, err = os.ReadFile(path) // #nosec G304 -- schema paths come from job declarations
		}
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", ref, err)
		}
		doc, err := ParseDocument(raw)
		if err != nil {
			return nil, fmt.Errorf("parse schema %s: %w", ref, err)
		}
		return doc, nil
	}
}

// ParseDocument decodes JSON, JSON with comments and trailing commas, or YAML
// into plain JSON values (map[string]any, []any, float64, string, bool, nil).
func ParseDocument(raw []byte) (any, error) {
	var doc any
	if err := json.Unmarshal(stripJSONC(raw), &doc); err == nil {
		return doc, nil
	}

	var y any
	if err := yaml.Unmarshal(raw, &y); err != nil {
		return nil, err
	}
	return toJSONValue(y)
}

// toJSONValue round-trips v through encoding/json so numbers and maps take
// their JSON shapes.
func toJSONValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// stripJSONC removes // and /* */ comments and trailing commas outside strings.
func stripJSONC(in []byte) []byte {
	out := make([]byte, 0, len(in))
	inString := false
	for i := 0; i < len(in); i++ {
		c := in[i]
		if inString {
			out = append(out, c)
			if c == '\\' && i+1 < len(in) {
				i++
				out = append(out, in[i])
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch {
		case c == '"':
			inString = true
			out = append(out, c)
		case c == '/' && i+1 < len(in) && in[i+1] == '/':
			for i < len(in) && in[i] != '\n' {
				i++
			}
			if i < len(in) {
				out = append(out, '\n')
			}
		case c == '/' && i+1 < len(in) && in[i+1] == '*':
			i += 2
			for i+1 < len(in) && !(in[i] == '*' && in[i+1] == '/') {
				i++
			}
			i++
		case c == '}' || c == ']':
			out = trimTrailingComma(out)
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return out
}

func trimTrailingComma(out []byte) []byte {
	j := len(out) - 1
	for j >= 0 && (out[j] == ' ' || out[j] == '\t' || out[j] == '\n' || out[j] == '\r') {
		j--
	}
	if j >= 0 && out[j] == ',' {
		return append(out[:j], out[j+1:]...)
	}
	return out
}
