package bibaux

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a location does not exist.
var ErrNotFound = errors.New("not found")

// NormalizeURL turns a local path or URL into an absolute URL understood by afs.
// Local paths are cleaned first so that one file always maps to one URL.
func NormalizeURL(location string) string {
	if !strings.Contains(location, "://") {
		location = filepath.Clean(location)
	}
	return url.Normalize(location, file.Scheme)
}

// resolveURL resolves location relative to the directory holding parentURL.
// "." and ".." segments are folded, so "./main.aux" and "sub/../main.aux"
// name the same file as "main.aux".
func resolveURL(parentURL, location string) string {
	if !url.IsRelative(location) {
		return NormalizeURL(location)
	}
	parent, _ := url.Split(parentURL, file.Scheme)
	return url.JoinUNC(parent, location)
}

func readURL(ctx context.Context, opts Options, URL string) ([]byte, error) {
	fs := opts.fs()
	exists, err := fs.Exists(ctx, URL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to check: %v", URL)
	}
	if !exists {
		return nil, errors.Wrapf(ErrNotFound, "%v", URL)
	}
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read: %v", URL)
	}
	return data, nil
}

// LoadDatabase reads one or more bib files and merges them into a single
// reference database; the first file wins on duplicate keys.
func LoadDatabase(ctx context.Context, opts Options, locations ...string) (*Database, error) {
	if len(locations) == 0 {
		return nil, errors.New("no bib file given")
	}
	log := opts.logger()
	dbs := make([]*Database, 0, len(locations))
	for _, location := range locations {
		URL := NormalizeURL(location)
		data, err := readURL(ctx, opts, URL)
		if err != nil {
			return nil, err
		}
		db, err := newParser(data, location, opts).parse()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse: %v", location)
		}
		log.Debug("loaded bib file",
			zap.String("file", URL),
			zap.Int("entries", db.EntryCount()),
			zap.Int("strings", db.StringCount()))
		dbs = append(dbs, db)
	}
	if len(dbs) == 1 {
		return dbs[0], nil
	}
	return Merge(strings.Join(locations, ","), dbs...), nil
}

// SaveDatabase writes db in bibtex syntax to location.
func SaveDatabase(ctx context.Context, opts Options, db *Database, location string) error {
	buf := new(bytes.Buffer)
	if err := Print(buf, db); err != nil {
		return err
	}
	URL := NormalizeURL(location)
	if err := opts.fs().Upload(ctx, URL, file.DefaultFileOsMode, buf); err != nil {
		return errors.Wrapf(err, "failed to write: %v", URL)
	}
	opts.logger().Debug("saved bib file", zap.String("file", URL), zap.Int("entries", db.EntryCount()))
	return nil
}
