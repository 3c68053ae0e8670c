package bibaux

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"
)

type SetActionType int8

const (
	SetNoAction SetActionType = iota
	// SetUnion keeps the first record of every duplicate set, in input order.
	SetUnion
)

type NodeInfo struct {
	Node   *Entry
	Parent *Database
}

type DedupMap = map[string][]NodeInfo

type DedupReport struct {
	DuplicateSetCount int
	DuplicateSet      DedupMap
	ResultSetCount    int
	order             []string // index terms in first-seen order
}

// DuplicateTerms returns the index terms that occur more than once, in input order.
func (dr *DedupReport) DuplicateTerms() []string {
	var terms []string
	for _, term := range dr.order {
		if len(dr.DuplicateSet[term]) > 1 {
			terms = append(terms, term)
		}
	}
	return terms
}

func (dr *DedupReport) Print(w io.Writer) error {
	if dr == nil || dr.DuplicateSetCount == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "%d duplicate sets found\n", dr.DuplicateSetCount); err != nil {
		return err
	}
	for _, idxTerm := range dr.DuplicateTerms() {
		nodes := dr.DuplicateSet[idxTerm]
		if _, err := fmt.Fprintf(w, "%s\n[%s] has %d occurrences in lines\n", strings.Repeat("*", 60), idxTerm, len(nodes)); err != nil {
			return err
		}
		for _, n := range nodes {
			// write filename: line
			if _, err := fmt.Fprintf(w, "%s:%d\n", n.Parent.Name(), n.Node.Line()); err != nil {
				return err
			}
			if err := Print(w, n.Node); err != nil {
				return err
			}
		}
	}
	return nil
}

func (dr DedupReport) String() string {
	var b = new(bytes.Buffer)
	if err := dr.Print(b); err != nil {
		b.WriteString("error: " + err.Error())
	}
	return b.String()
}

// indexEntry returns a string concating values of fields
func indexEntry(rec *Entry, fldNames []string, raw bool) string {
	var sb strings.Builder
	for _, fldname := range fldNames {
		sb.WriteString(rec.Field(fldname))
	}
	if raw {
		return sb.String()
	}
	return onlyASCIAlphaNumeric(sb.String())
}

// Deduplicate performs set operations on one or more databases
// using the concatenated values of field names. If no fields specified,
// the citation key is used.
// It returns a DedupReport and, if action != SetNoAction, the resulting database.
func Deduplicate(dbs []*Database, fldNames []string, action SetActionType) (*Database, *DedupReport, error) {
	total := 0
	for _, db := range dbs {
		total += db.EntryCount()
	}
	if total == 0 {
		return nil, nil, fmt.Errorf("nothing to deduplicate")
	}
	hasFields := len(fldNames) > 0
	citekey := !hasFields || slices.Contains(fldNames, "citekey")
	dr := &DedupReport{DuplicateSet: make(DedupMap, total)}
	for _, db := range dbs {
		for _, c := range db.Entries {
			idx := ""
			if hasFields {
				idx = indexEntry(c, fldNames, false)
			}
			if citekey {
				idx = idx + c.Key()
			}
			if _, seen := dr.DuplicateSet[idx]; !seen {
				dr.order = append(dr.order, idx)
			}
			dr.DuplicateSet[idx] = append(dr.DuplicateSet[idx], NodeInfo{c, db})
		}
	}
	for _, nodes := range dr.DuplicateSet {
		if len(nodes) > 1 {
			dr.DuplicateSetCount++
		}
	}
	switch action {
	case SetNoAction:
		return nil, dr, nil
	case SetUnion:
		res := NewDatabase("union.bib")
		for _, idx := range dr.order {
			res.AddEntry(dr.DuplicateSet[idx][0].Node)
			dr.ResultSetCount++
		}
		return res, dr, nil
	}
	return nil, nil, fmt.Errorf("invalid set action")
}

// DuplicateKeys reports citation keys used by more than one entry of db.
func DuplicateKeys(db *Database) *DedupReport {
	_, dr, err := Deduplicate([]*Database{db}, nil, SetNoAction)
	if err != nil {
		return &DedupReport{}
	}
	return dr
}

// ValidKeys checks if all records have citekeys and all are unique
func ValidKeys(db *Database) bool {
	for _, rec := range db.Entries {
		if rec.key == "" {
			return false
		}
	}
	return DuplicateKeys(db).DuplicateSetCount == 0
}

// Merge unions several databases by citation key; the first occurrence of a key,
// of a macro and the first non-empty preamble win.
func Merge(name string, dbs ...*Database) *Database {
	res, _, err := Deduplicate(dbs, nil, SetUnion)
	if err != nil {
		res = NewDatabase(name)
	}
	res.name = name
	for _, db := range dbs {
		for _, s := range db.strings {
			if _, ok := res.StringByName(s.Name); !ok {
				res.AddString(s)
			}
		}
		if len(res.Preamble) == 0 {
			res.Preamble = db.Preamble
		}
	}
	return res
}
