package transfer

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed appdata.cue
var appDataSchema string

var (
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaDef  cue.Value
	schemaErr  error

	// guards schemaCtx, which is not safe for concurrent use
	schemaMu sync.Mutex
)

// loadSchema compiles the embedded CUE schema once per process.
func loadSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileString(appDataSchema, cue.Filename("appdata.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}
		schemaDef = v.LookupPath(cue.ParsePath("#AppData"))
		if !schemaDef.Exists() {
			schemaErr = fmt.Errorf("schema has no #AppData definition")
		}
	})
	return schemaCtx, schemaDef, schemaErr
}

// validateSchema unifies the JSON payload with #AppData and requires a
// concrete, conflict-free result. JSON is valid CUE, so the payload compiles
// directly.
func validateSchema(data []byte) error {
	ctx, def, err := loadSchema()
	if err != nil {
		return err
	}
	schemaMu.Lock()
	defer schemaMu.Unlock()

	v := ctx.CompileBytes(data, cue.Filename("import.json"))
	if err := v.Err(); err != nil {
		return fmt.Errorf("parse payload: %w", err)
	}

	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}
