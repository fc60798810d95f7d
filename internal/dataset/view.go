package dataset

// Record is the capability rules use to read one component instance
// without knowing its concrete representation.
type Record interface {
	ID() int64
	Field(name string) (Value, bool)
}

// View is a read-only dataset: the base input or a merged scenario.
type View interface {
	// Components returns component names in sorted order.
	Components() []string
	// Len returns the record count of a component (0 when absent).
	Len(component string) int
	// Record returns the i-th record of a component in dataset order.
	Record(component string, i int) Record
}

// record binds a row to its component's identifier field.
type record struct {
	row     Row
	idField string
}

func (r record) ID() int64 {
	id, _ := AsInt(r.row[r.idField])
	return id
}

func (r record) Field(name string) (Value, bool) {
	v, ok := r.row[name]
	return v, ok
}

// patched resolves fields from the patch first, then from the base row.
type patched struct {
	base    Row
	patch   Row
	idField string
}

func (r patched) ID() int64 {
	id, _ := AsInt(r.base[r.idField])
	return id
}

func (r patched) Field(name string) (Value, bool) {
	if name != r.idField {
		if v, ok := r.patch[name]; ok {
			return v, true
		}
	}
	v, ok := r.base[name]
	return v, ok
}
