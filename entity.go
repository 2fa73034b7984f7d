package record

// State is the persistence state of an entity instance.
type State int

const (
	// StateNew marks an instance that has never been written.
	StateNew State = iota
	// StatePersisted marks an instance that was loaded or saved.
	StatePersisted
	// StateDeleted marks an instance whose row has been deleted.
	StateDeleted
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StatePersisted:
		return "persisted"
	case StateDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// BaseModel provides the common fields for entity structs. Embed it by value.
type BaseModel struct {
	ID int64 `json:"id" db:"id"`
	// Extra holds columns returned by the store that no struct field maps,
	// such as joined or aliased columns. Loaded extras are read-only: Save
	// writes back only the extras assigned through SetExtra or present on an
	// instance that was never loaded.
	Extra map[string]interface{} `json:"-" db:"-"`

	state  State
	loaded map[string]struct{} // extras that came from the store and were not reassigned
}

// Entity is implemented by any struct embedding BaseModel that names its table.
type Entity interface {
	TableName() string
	base() *BaseModel
}

func (b *BaseModel) base() *BaseModel { return b }

// GetID returns the primary key value.
func (b *BaseModel) GetID() int64 { return b.ID }

// State returns the persistence state.
func (b *BaseModel) State() State { return b.state }

// IsNewRecord reports whether the instance has never been written.
func (b *BaseModel) IsNewRecord() bool { return b.state == StateNew }

// MarkPersisted records that the instance corresponds to row id.
func (b *BaseModel) MarkPersisted(id int64) {
	b.ID = id
	b.state = StatePersisted
}

// SetExtra sets an attribute that no struct field maps. It is written on
// the next Save.
func (b *BaseModel) SetExtra(column string, value interface{}) {
	if b.Extra == nil {
		b.Extra = make(map[string]interface{})
	}
	b.Extra[column] = value
	delete(b.loaded, column)
}

func (b *BaseModel) loadExtra(column string, value interface{}) {
	if b.Extra == nil {
		b.Extra = make(map[string]interface{})
	}
	if b.loaded == nil {
		b.loaded = make(map[string]struct{})
	}
	b.Extra[column] = value
	b.loaded[column] = struct{}{}
}

func (b *BaseModel) writableExtra(column string) bool {
	_, ok := b.loaded[column]
	return !ok
}
