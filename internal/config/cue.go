package config

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaCUE []byte

// cueToJSON validates a CUE config file against #Config and exports it as
// JSON, which the YAML decoder then reads like any other config file.
func cueToJSON(path string, data []byte) ([]byte, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compiling config schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compiling %s: %w", path, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	out, err := unified.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("exporting %s: %w", path, err)
	}
	return out, nil
}
