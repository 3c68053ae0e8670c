package bibaux

import (
	"fmt"
	"io"
	"strings"
)

// AuxResult is the outcome of one AuxParser.Parse call.
type AuxResult struct {
	reference *Database
	generated *Database

	foundKeys           []string
	unresolvedKeys      []string
	unresolvedCrossRefs []string
	bibData             []string
	auxFiles            []string

	nestedAuxCount       int
	crossRefEntriesCount int
	insertedStrings      int
}

func (r *AuxResult) ReferenceDatabase() *Database { return r.reference }

func (r *AuxResult) GeneratedDatabase() *Database { return r.generated }

// FoundKeys returns the distinct cited keys in order of first citation.
func (r *AuxResult) FoundKeys() []string { return r.foundKeys }

func (r *AuxResult) FoundKeysCount() int { return len(r.foundKeys) }

func (r *AuxResult) ResolvedKeysCount() int { return len(r.foundKeys) - len(r.unresolvedKeys) }

func (r *AuxResult) UnresolvedKeys() []string { return r.unresolvedKeys }

func (r *AuxResult) UnresolvedKeysCount() int { return len(r.unresolvedKeys) }

// UnresolvedCrossRefs lists crossref targets missing from the reference database.
// They are not cited keys and so are not part of UnresolvedKeys.
func (r *AuxResult) UnresolvedCrossRefs() []string { return r.unresolvedCrossRefs }

func (r *AuxResult) CrossRefEntriesCount() int { return r.crossRefEntriesCount }

func (r *AuxResult) InsertedStringsCount() int { return r.insertedStrings }

// NestedAuxCount is the number of distinct \@input files that were parsed.
func (r *AuxResult) NestedAuxCount() int { return r.nestedAuxCount }

// BibDataFiles returns the names given in \bibdata, as written.
func (r *AuxResult) BibDataFiles() []string { return r.bibData }

// AuxFiles returns the URLs of the aux files that were read, the top-level file first.
func (r *AuxResult) AuxFiles() []string { return r.auxFiles }

// IsEmpty reports whether nothing could be resolved.
func (r *AuxResult) IsEmpty() bool { return r.generated.EntryCount() == 0 }

// Print writes a status report; includeMissing adds the unresolved keys.
func (r *AuxResult) Print(w io.Writer, includeMissing bool) error {
	_, err := io.WriteString(w, r.Information(includeMissing))
	return err
}

func (r *AuxResult) Information(includeMissing bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "keys in LaTeX file: %d\n", r.FoundKeysCount())
	fmt.Fprintf(&sb, "found in database: %d\n", r.ResolvedKeysCount())
	fmt.Fprintf(&sb, "not found: %d\n", r.UnresolvedKeysCount())
	fmt.Fprintf(&sb, "crossreferenced entries included: %d\n", r.crossRefEntriesCount)
	fmt.Fprintf(&sb, "strings included: %d\n", r.insertedStrings)
	fmt.Fprintf(&sb, "additional aux files: %d\n", r.nestedAuxCount)
	if includeMissing && len(r.unresolvedKeys) > 0 {
		sb.WriteString("missing keys:\n")
		for _, key := range r.unresolvedKeys {
			sb.WriteString("  " + key + "\n")
		}
	}
	if includeMissing && len(r.unresolvedCrossRefs) > 0 {
		sb.WriteString("missing crossref targets:\n")
		for _, key := range r.unresolvedCrossRefs {
			sb.WriteString("  " + key + "\n")
		}
	}
	if r.IsEmpty() {
		sb.WriteString("empty library\n")
	}
	return sb.String()
}
