package filehost

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
	"gitlab.com/tozd/go/errors"

	"github.com/modelworks/refit/pkg/cadhost"
)

// container is the on-disk document layout
type container struct {
	Kind            string            `msgpack:"kind"`
	References      []string          `msgpack:"references"`
	IProperties     map[string]any    `msgpack:"iproperties"`
	Parameters      []parameterRecord `msgpack:"parameters"`
	Components      []componentRecord `msgpack:"components"`
	ModelState      string            `msgpack:"model_state"`
	Representations []string          `msgpack:"representations"`
	FactoryRows     []factoryRecord   `msgpack:"factory_rows"`
}

type parameterRecord struct {
	Name  string `msgpack:"name"`
	Value any    `msgpack:"value"`
	Units string `msgpack:"units"`
}

type componentRecord struct {
	Name       string `msgpack:"name"`
	Suppressed bool   `msgpack:"suppressed"`
}

type factoryRecord struct {
	Member string         `msgpack:"member"`
	Cells  map[string]any `msgpack:"cells"`
}

// 📄 document implements cadhost.Document
type document struct {
	path   string
	c      container
	dirty  bool
	closed bool
}

func (d *document) Path() string { return d.path }

func (d *document) Kind() cadhost.Kind { return cadhost.KindOf(d.path) }

func (d *document) References() []string {
	refs := make([]string, len(d.c.References))
	copy(refs, d.c.References)
	return refs
}

func (d *document) RewriteReference(old, new string) bool {
	matched := false
	for i, ref := range d.c.References {
		if ref == old {
			d.c.References[i] = new
			matched = true
		}
	}
	if matched {
		d.dirty = true
	}
	return matched
}

func (d *document) IProperty(key string) (cadhost.Value, bool) {
	raw, ok := d.c.IProperties[key]
	if !ok {
		return cadhost.Value{}, false
	}
	v, err := cadhost.FromAny(raw)
	if err != nil {
		return cadhost.Value{}, false
	}
	return v, true
}

func (d *document) SetIProperty(key string, v cadhost.Value) {
	if d.c.IProperties == nil {
		d.c.IProperties = map[string]any{}
	}
	d.c.IProperties[key] = v.Interface()
	d.dirty = true
}

func (d *document) Parameters() []cadhost.Parameter {
	params := make([]cadhost.Parameter, 0, len(d.c.Parameters))
	for _, p := range d.c.Parameters {
		v, err := cadhost.FromAny(p.Value)
		if err != nil {
			continue
		}
		params = append(params, cadhost.Parameter{Name: p.Name, Value: v, Units: p.Units})
	}
	return params
}

func (d *document) SetParameter(name string, v cadhost.Value) error {
	for i, p := range d.c.Parameters {
		if p.Name == name {
			d.c.Parameters[i].Value = v.Interface()
			d.dirty = true
			return nil
		}
	}
	return errors.Errorf("parameter %s not found in %s", name, d.path)
}

func (d *document) Components() []cadhost.Component {
	comps := make([]cadhost.Component, 0, len(d.c.Components))
	for _, c := range d.c.Components {
		comps = append(comps, cadhost.Component{Name: c.Name, Suppressed: c.Suppressed})
	}
	return comps
}

func (d *document) SetSuppression(name string, suppressed bool) error {
	for i, c := range d.c.Components {
		if c.Name == name {
			if c.Suppressed != suppressed {
				d.c.Components[i].Suppressed = suppressed
				d.dirty = true
			}
			return nil
		}
	}
	return errors.Errorf("component %s not found in %s", name, d.path)
}

func (d *document) ModelState() string { return d.c.ModelState }

func (d *document) SetModelState(name string) {
	d.c.ModelState = name
	d.dirty = true
}

func (d *document) Representations() []string {
	reps := make([]string, len(d.c.Representations))
	copy(reps, d.c.Representations)
	return reps
}

func (d *document) SetRepresentations(names []string) {
	d.c.Representations = append([]string(nil), names...)
	d.dirty = true
}

func (d *document) FactoryRows() []cadhost.FactoryRow {
	rows := make([]cadhost.FactoryRow, 0, len(d.c.FactoryRows))
	for _, r := range d.c.FactoryRows {
		cells := map[string]cadhost.Value{}
		for k, raw := range r.Cells {
			v, err := cadhost.FromAny(raw)
			if err != nil {
				continue
			}
			cells[k] = v
		}
		rows = append(rows, cadhost.FactoryRow{Member: r.Member, Cells: cells})
	}
	return rows
}

func (d *document) SetFactoryCell(member, column string, v cadhost.Value) error {
	for i, r := range d.c.FactoryRows {
		if r.Member == member {
			if d.c.FactoryRows[i].Cells == nil {
				d.c.FactoryRows[i].Cells = map[string]any{}
			}
			d.c.FactoryRows[i].Cells[column] = v.Interface()
			d.dirty = true
			return nil
		}
	}
	return errors.Errorf("member %s not found in %s", member, d.path)
}

func (d *document) Dirty() bool { return d.dirty }

func (d *document) Save(ctx context.Context) error {
	if d.closed {
		return errors.Errorf("document %s is closed", d.path)
	}

	data, err := msgpack.Marshal(&d.c)
	if err != nil {
		return errors.Errorf("encoding document: %w", err)
	}
	if err := writeFileAtomic(d.path, data); err != nil {
		return errors.Errorf("saving document: %w", err)
	}

	zerolog.Ctx(ctx).Debug().Str("path", d.path).Msg("saved document")
	d.dirty = false
	return nil
}

// SaveAs writes the document under a new path. The file at the old path is
// left in place; callers that want it gone schedule it for cleanup.
func (d *document) SaveAs(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Errorf("resolving path: %w", err)
	}
	old := d.path
	d.path = abs
	if err := d.Save(ctx); err != nil {
		d.path = old
		return err
	}
	zerolog.Ctx(ctx).Debug().Str("from", old).Str("to", abs).Msg("saved document under new path")
	return nil
}

func (d *document) Close(ctx context.Context) error {
	d.closed = true
	return nil
}
