package bibaux

import (
	"strings"
)

// Database is an in-memory BibTeX library.
type Database struct {
	Entries  []*Entry
	Preamble Value
	name     string
	strings  []*String
	index    map[string]*Entry
	macros   map[string]*String
}

// NewDatabase returns an empty database labelled name.
func NewDatabase(name string) *Database {
	return &Database{
		name:   name,
		index:  make(map[string]*Entry),
		macros: make(map[string]*String),
	}
}

func (db *Database) Name() string {
	return db.name
}

// AddEntry appends rec. When the key is already taken the entry is still kept
// but lookups keep returning the first one.
func (db *Database) AddEntry(rec *Entry) {
	db.Entries = append(db.Entries, rec)
	if _, ok := db.index[rec.key]; !ok {
		db.index[rec.key] = rec
	}
}

func (db *Database) EntryCount() int {
	return len(db.Entries)
}

// EntryByKey looks up an entry by its case-sensitive citation key.
func (db *Database) EntryByKey(key string) (*Entry, bool) {
	rec, ok := db.index[key]
	return rec, ok
}

func (db *Database) Keys() []string {
	keys := make([]string, 0, len(db.Entries))
	for _, rec := range db.Entries {
		keys = append(keys, rec.key)
	}
	return keys
}

// AddString defines a macro; a later definition of the same name replaces the earlier one.
func (db *Database) AddString(s *String) {
	name := strings.ToLower(s.Name)
	if old, ok := db.macros[name]; ok {
		old.Value = s.Value
		return
	}
	db.macros[name] = s
	db.strings = append(db.strings, s)
}

// Strings returns the macro definitions in definition order.
func (db *Database) Strings() []*String {
	return db.strings
}

func (db *Database) StringByName(name string) (*String, bool) {
	s, ok := db.macros[strings.ToLower(name)]
	return s, ok
}

func (db *Database) StringCount() int {
	return len(db.strings)
}

// reindex rebuilds the key index after Entries was reordered or replaced.
func (db *Database) reindex() {
	db.index = make(map[string]*Entry, len(db.Entries))
	for _, rec := range db.Entries {
		if _, ok := db.index[rec.key]; !ok {
			db.index[rec.key] = rec
		}
	}
}

// Entry is a single bibliographic record such as @article{key, ...}.
type Entry struct {
	fields []Field
	key    string // citation key
	typ    string // bibtex type, lower case
	line   int
}

// NewEntry creates an entry of type typ with citation key key.
func NewEntry(typ, key string) *Entry {
	return &Entry{typ: strings.ToLower(typ), key: key}
}

func (rec *Entry) Line() int {
	return rec.line
}

func (rec *Entry) Key() string {
	return rec.key
}

func (rec *Entry) Type() string {
	return rec.typ
}

func (rec *Entry) Fields() []Field {
	return rec.fields
}

// Set adds the field or replaces its value.
func (rec *Entry) Set(name string, value Value) {
	name = strings.ToLower(name)
	for i := range rec.fields {
		if rec.fields[i].key == name {
			rec.fields[i].value = value
			return
		}
	}
	rec.fields = append(rec.fields, Field{key: name, value: value})
}

// Field returns the flattened text of a field or "" when absent.
func (rec *Entry) Field(fieldName string) string {
	if v, ok := rec.Value(fieldName); ok {
		return v.String()
	}
	return ""
}

func (rec *Entry) Value(fieldName string) (Value, bool) {
	fieldName = strings.ToLower(fieldName)
	for _, fld := range rec.fields {
		if fld.key == fieldName {
			return fld.value, true
		}
	}
	return nil, false
}

// CrossRef returns the key named by the crossref field.
func (rec *Entry) CrossRef() string {
	return strings.TrimSpace(rec.Field("crossref"))
}

// Macros lists the @string names referenced by any field.
func (rec *Entry) Macros() []string {
	var names []string
	for _, fld := range rec.fields {
		names = append(names, fld.value.Macros()...)
	}
	return names
}

// Clone returns a deep copy so the copy can be edited without touching rec.
func (rec *Entry) Clone() *Entry {
	c := &Entry{key: rec.key, typ: rec.typ, line: rec.line}
	c.fields = make([]Field, len(rec.fields))
	for i, fld := range rec.fields {
		c.fields[i] = Field{key: fld.key, value: fld.value.Clone(), line: fld.line}
	}
	return c
}

type Field struct {
	key   string // name of field, lower case
	value Value
	line  int
}

func (fld *Field) Line() int {
	return fld.line
}

func (fld *Field) Key() string {
	return fld.key
}

func (fld *Field) Value() Value {
	return fld.value
}

// String is an @string macro definition.
type String struct {
	Name  string
	Value Value
	line  int
}

func (s *String) Line() int {
	return s.line
}

// Part is one operand of a # concatenation.
type Part struct {
	Text  string
	Macro bool // Text names an @string
}

// Value is a field value as written in the source, before macro expansion.
type Value []Part

// Literal wraps plain text as a single-part value.
func Literal(text string) Value {
	return Value{{Text: text}}
}

// String flattens the value; macro references contribute their names.
func (v Value) String() string {
	if len(v) == 1 {
		return v[0].Text
	}
	var sb strings.Builder
	for _, p := range v {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

func (v Value) Macros() []string {
	var names []string
	for _, p := range v {
		if p.Macro {
			names = append(names, p.Text)
		}
	}
	return names
}

func (v Value) Clone() Value {
	if v == nil {
		return nil
	}
	return append(Value(nil), v...)
}
