package bibaux

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// missingYear sorts undated entries after every dated one in a descending sort.
const missingYear = math.MinInt

// Sort reorders db.Entries. Supported orders are "key", "type,-year" and
// "" or "none" which leave the database untouched.
func Sort(db *Database, flds string) error {
	if db == nil {
		return fmt.Errorf("nothing to sort")
	}
	recs := db.Entries
	switch flds {
	case "", "none":
		return nil
	case "key":
		sort.SliceStable(recs, func(i, j int) bool {
			return recs[i].key < recs[j].key
		})
	case "type,-year":
		sort.SliceStable(recs, func(i, j int) bool {
			ni, nj := recs[i], recs[j]
			if ni.typ != nj.typ {
				return ni.typ < nj.typ //record type
			}
			return year(ni) > year(nj) // descending sort
		})
	default:
		return fmt.Errorf("sort order %q not implemented", flds)
	}
	db.reindex()
	return nil
}

// year returns the publication year; entries without one sort after dated ones
// in a descending sort.
func year(rec *Entry) int {
	y, err := strconv.Atoi(rec.Field("year"))
	if err != nil {
		return missingYear
	}
	return y
}
