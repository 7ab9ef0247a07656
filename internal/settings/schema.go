package settings

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE string

var (
	schemaMu   sync.Mutex
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaDef  cue.Value
	schemaErr  error
)

// compiledSchema builds the #Config definition once. A cue.Context is not
// safe for concurrent use, so callers hold schemaMu while using it.
func compiledSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileString(schemaCUE, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile settings schema: %w", err)
			return
		}
		schemaDef = v.LookupPath(cue.ParsePath("#Config"))
		if !schemaDef.Exists() {
			schemaErr = fmt.Errorf("settings schema has no #Config")
		}
	})
	return schemaCtx, schemaDef, schemaErr
}

// validateSchema unifies cfg with #Config and requires a concrete result.
func validateSchema(cfg *Config) error {
	schemaMu.Lock()
	defer schemaMu.Unlock()

	ctx, def, err := compiledSchema()
	if err != nil {
		return err
	}

	encoded := ctx.Encode(cfg)
	if err := encoded.Err(); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	unified := def.Unify(encoded)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Details: errors.Details(err, nil)}
	}
	return nil
}

// ValidationError reports schema violations.
type ValidationError struct {
	Details string
}

func (e *ValidationError) Error() string {
	return "invalid settings: " + e.Details
}
