package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/gridval/internal/schema"
	"github.com/roach88/gridval/internal/validation"
)

//go:embed schema.cue
var schemaSource string

//go:embed default.cue
var defaultSource string

// Catalog is a decoded catalog: the registry, the rule configuration as
// written, and the verified rules it yields.
type Catalog struct {
	Registry *schema.Registry
	Specs    []validation.RuleSpec
	Defaults bool

	rules []validation.Rule
}

// Rules returns the catalog's rules in catalog order: the registry's
// structural rules (when Defaults is set) followed by the configured rules
// in declaration order. Violations are reported in the validator's order,
// see validation.Validator.Rules.
func (c *Catalog) Rules() []validation.Rule {
	return slices.Clone(c.rules)
}

// Validator builds a validator over the catalog's registry and rules.
func (c *Catalog) Validator(opts ...validation.Option) (*validation.Validator, error) {
	return validation.New(c.Registry, c.Rules(), opts...)
}

// Error is a catalog that could not be loaded or decoded. Pos is set when
// the problem has a CUE source position.
type Error struct {
	Path string
	Pos  token.Pos
	Err  error
}

func (e *Error) Error() string {
	msg := e.Err.Error()
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Default returns the embedded power-grid catalog.
var Default = sync.OnceValues(func() (*Catalog, error) {
	return CompileString("default.cue", defaultSource)
})

// CompileString decodes a catalog from CUE source. name is used in error
// positions.
func CompileString(name, src string) (*Catalog, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(name))
	if err := v.Err(); err != nil {
		return nil, cueError("", err)
	}
	return decode(ctx, v)
}

// Load decodes the catalog formed by every .cue file in dir.
func Load(dir string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("catalog directory: %w", err)}
	}
	if !info.IsDir() {
		return nil, &Error{Err: fmt.Errorf("not a directory: %s", dir)}
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, &Error{Err: err}
	}
	if len(files) == 0 {
		return nil, &Error{Err: fmt.Errorf("no CUE files found in %s", dir)}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &Error{Err: fmt.Errorf("no CUE instances loaded from %s", dir)}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, cueError("", inst.Err)
	}

	ctx := cuecontext.New()
	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, cueError("", err)
	}
	return decode(ctx, v)
}

// decode unifies v with #Catalog and turns it into a registry and rules.
func decode(ctx *cue.Context, v cue.Value) (*Catalog, error) {
	def := ctx.CompileString(schemaSource, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Catalog"))
	v = def.Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError("", err)
	}

	components, err := decodeComponents(v.LookupPath(cue.ParsePath("component")))
	if err != nil {
		return nil, err
	}
	reg, err := schema.NewRegistry(components...)
	if err != nil {
		return nil, &Error{Path: "component", Pos: v.Pos(), Err: err}
	}

	rulesVal := v.LookupPath(cue.ParsePath("rules"))
	specs, err := decodeRules(rulesVal)
	if err != nil {
		return nil, err
	}

	defaults, _ := v.LookupPath(cue.ParsePath("defaults")).Default()
	useDefaults, err := defaults.Bool()
	if err != nil {
		return nil, cueError("defaults", err)
	}

	configured, err := validation.BuildRules(reg, specs)
	if err != nil {
		return nil, &Error{Path: "rules", Pos: rulesVal.Pos(), Err: err}
	}

	c := &Catalog{Registry: reg, Specs: specs, Defaults: useDefaults}
	if useDefaults {
		c.rules = validation.DefaultRules(reg)
	}
	c.rules = append(c.rules, configured...)
	return c, nil
}

func decodeComponents(v cue.Value) ([]schema.Component, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, cueError("component", err)
	}

	var out []schema.Component
	for iter.Next() {
		name := iter.Label()
		fields, err := iter.Value().LookupPath(cue.ParsePath("fields")).Fields()
		if err != nil {
			return nil, cueError("component."+name, err)
		}
		comp := schema.Component{Name: name}
		for fields.Next() {
			raw, err := fields.Value().String()
			if err != nil {
				return nil, cueError("component."+name+"."+fields.Label(), err)
			}
			kind, err := schema.ParseKind(raw)
			if err != nil {
				return nil, &Error{Path: "component." + name + "." + fields.Label(), Pos: fields.Value().Pos(), Err: err}
			}
			comp.Fields = append(comp.Fields, schema.Field{Name: fields.Label(), Kind: kind})
		}
		out = append(out, comp)
	}
	if len(out) == 0 {
		return nil, &Error{Path: "component", Pos: v.Pos(), Err: fmt.Errorf("catalog declares no components")}
	}
	return out, nil
}

func decodeRules(v cue.Value) ([]validation.RuleSpec, error) {
	iter, err := v.List()
	if err != nil {
		return nil, cueError("rules", err)
	}

	var specs []validation.RuleSpec
	for i := 0; iter.Next(); i++ {
		rv := iter.Value()
		path := fmt.Sprintf("rules[%d]", i)

		var spec validation.RuleSpec
		if spec.Kind, err = rv.LookupPath(cue.ParsePath("kind")).String(); err != nil {
			return nil, cueError(path, err)
		}

		refs, err := rv.LookupPath(cue.ParsePath("fields")).List()
		if err != nil {
			return nil, cueError(path, err)
		}
		for refs.Next() {
			s, err := refs.Value().String()
			if err != nil {
				return nil, cueError(path, err)
			}
			ref, err := schema.ParseFieldRef(s)
			if err != nil {
				return nil, &Error{Path: path, Pos: refs.Value().Pos(), Err: err}
			}
			spec.Fields = append(spec.Fields, ref)
		}

		bounds := []struct {
			name string
			dst  *float64
		}{
			{"bound", &spec.Bound},
			{"low", &spec.Low},
			{"high", &spec.High},
		}
		for _, b := range bounds {
			nv := rv.LookupPath(cue.ParsePath(b.name))
			if !nv.Exists() {
				continue
			}
			if *b.dst, err = nv.Float64(); err != nil {
				return nil, cueError(path+"."+b.name, err)
			}
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// cueError keeps the first CUE error and its position.
func cueError(path string, err error) *Error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Path: path, Err: err}
	}
	first := errs[0]
	out := &Error{Path: path, Err: first}
	if pos := cueerrors.Positions(first); len(pos) > 0 {
		out.Pos = pos[0]
	}
	return out
}
