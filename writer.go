package bibaux

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

func (rec *Entry) BibtexRepr() string {
	return fmt.Sprintf("@%s{%s,\n", rec.typ, rec.key)
}

func (fld *Field) BibtexRepr() string {
	return fmt.Sprintf("  %s = %s", fld.key, fld.value.BibtexRepr())
}

func (s *String) BibtexRepr() string {
	return fmt.Sprintf("@string{%s = %s}\n", s.Name, s.Value.BibtexRepr())
}

// BibtexRepr renders the value the way it would appear after "name =".
func (v Value) BibtexRepr() string {
	if len(v) == 0 {
		return "{}"
	}
	parts := make([]string, len(v))
	for i, p := range v {
		switch {
		case p.Macro:
			parts[i] = p.Text
		case isDigits(p.Text) && len(v) == 1:
			parts[i] = p.Text
		default:
			parts[i] = "{" + p.Text + "}"
		}
	}
	return strings.Join(parts, " # ")
}

// Print writes a *Database, *Entry, Field or *String in bibtex syntax.
func Print(w io.Writer, n any) error {
	bw := bufio.NewWriter(w)
	if err := writeNode(bw, n); err != nil {
		return err
	}
	return bw.Flush()
}

func writeNode(w *bufio.Writer, n any) error {
	switch n := n.(type) {
	case *Database:
		if len(n.Preamble) > 0 {
			fmt.Fprintf(w, "@preamble{%s}\n\n", n.Preamble.BibtexRepr())
		}
		for _, s := range n.strings {
			w.WriteString(s.BibtexRepr())
		}
		if len(n.strings) > 0 {
			w.WriteByte('\n')
		}
		for i, rec := range n.Entries {
			if i > 0 {
				w.WriteByte('\n')
			}
			if err := writeNode(w, rec); err != nil {
				return err
			}
		}
	case *Entry:
		w.WriteString(n.BibtexRepr())
		for i := range n.fields {
			w.WriteString(n.fields[i].BibtexRepr())
			if i < len(n.fields)-1 {
				w.WriteByte(COMMA)
			}
			w.WriteByte('\n')
		}
		w.WriteString("}\n")
	case Field:
		w.WriteString(n.BibtexRepr())
	case *String:
		w.WriteString(n.BibtexRepr())
	default:
		return fmt.Errorf("unknown node type %T", n)
	}
	return nil
}

// String returns the database in bibtex syntax.
func (db *Database) String() string {
	var sb strings.Builder
	if err := Print(&sb, db); err != nil {
		return "error: " + err.Error()
	}
	return sb.String()
}
