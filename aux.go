package bibaux

import (
	"bufio"
	"context"
	"io"
	"regexp"
	"slices"
	"strings"

	"go.uber.org/zap"
)

var (
	// \citation{a,b} and biblatex's \abx@aux@cite{key} / \abx@aux@cite{refsection}{key}
	citationRE = regexp.MustCompile(`\\(?:citation|abx@aux@cite)(?:\{[^{}]*\})?\{([^{}]*)\}`)
	bibdataRE  = regexp.MustCompile(`\\bibdata\{([^{}]*)\}`)
	inputRE    = regexp.MustCompile(`\\@input\{([^{}]*)\}`)
)

// allKeys is what \nocite{*} leaves in the aux file.
const allKeys = "*"

// AuxParser resolves the citations of a LaTeX aux file against a reference database.
type AuxParser struct {
	ref  *Database
	opts Options
	log  *zap.Logger
}

func NewAuxParser(ref *Database, opts Options) *AuxParser {
	if ref == nil {
		ref = NewDatabase("")
	}
	return &AuxParser{ref: ref, opts: opts, log: opts.logger()}
}

// auxScan accumulates what the aux file and its \@input files declare.
type auxScan struct {
	keys    []string
	seen    map[string]bool
	visited map[string]bool
	bibData []string
	files   []string // URLs read, top-level first
	nested  int
	all     bool
}

// Parse reads the aux file at location (a path or URL) and builds the sub-database.
// When the file cannot be read there is no result; the cause is logged.
func (p *AuxParser) Parse(ctx context.Context, location string) (*AuxResult, bool) {
	URL := NormalizeURL(location)
	scan := &auxScan{
		seen:    make(map[string]bool),
		visited: map[string]bool{URL: true},
	}
	if err := p.scanFile(ctx, URL, scan); err != nil {
		p.log.Warn("cannot read aux file", zap.String("file", URL), zap.Error(err))
		return nil, false
	}
	res := p.resolve(scan, strings.TrimSuffix(URL, ".aux")+".bib")
	p.log.Debug("aux file resolved",
		zap.String("file", URL),
		zap.Int("found", res.FoundKeysCount()),
		zap.Int("resolved", res.ResolvedKeysCount()),
		zap.Int("unresolved", res.UnresolvedKeysCount()),
		zap.Int("crossrefs", res.CrossRefEntriesCount()),
		zap.Int("strings", res.InsertedStringsCount()),
		zap.Int("nested", res.NestedAuxCount()))
	return res, true
}

func (p *AuxParser) scanFile(ctx context.Context, URL string, scan *auxScan) error {
	data, err := readURL(ctx, p.opts, URL)
	if err != nil {
		return err
	}
	scan.files = append(scan.files, URL)
	r := newLineReader(strings.NewReader(decodeText(data)))
	for {
		line, err := r.readLine()
		if len(line) > 0 {
			p.scanLine(ctx, URL, string(line), scan)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (p *AuxParser) scanLine(ctx context.Context, URL, line string, scan *auxScan) {
	for _, m := range citationRE.FindAllStringSubmatch(line, -1) {
		for _, key := range strings.Split(m[1], ",") {
			key = strings.TrimSpace(key)
			switch {
			case key == "":
			case key == allKeys:
				scan.all = true
			case !scan.seen[key]:
				scan.seen[key] = true
				scan.keys = append(scan.keys, key)
			}
		}
	}
	for _, m := range bibdataRE.FindAllStringSubmatch(line, -1) {
		for _, name := range strings.Split(m[1], ",") {
			if name = strings.TrimSpace(name); name != "" && !slices.Contains(scan.bibData, name) {
				scan.bibData = append(scan.bibData, name)
			}
		}
	}
	for _, m := range inputRE.FindAllStringSubmatch(line, -1) {
		name := strings.TrimSpace(m[1])
		if name == "" {
			continue
		}
		child := resolveURL(URL, name)
		if scan.visited[child] {
			p.log.Debug("aux file already parsed", zap.String("file", child), zap.String("parent", URL))
			continue
		}
		scan.visited[child] = true
		if err := p.scanFile(ctx, child, scan); err != nil {
			p.log.Warn("cannot read nested aux file",
				zap.String("file", child),
				zap.String("parent", URL),
				zap.Error(err))
			continue
		}
		scan.nested++
	}
}

func (p *AuxParser) resolve(scan *auxScan, name string) *AuxResult {
	res := &AuxResult{
		reference:      p.ref,
		generated:      NewDatabase(name),
		bibData:        scan.bibData,
		auxFiles:       scan.files,
		nestedAuxCount: scan.nested,
	}
	keys := scan.keys
	if scan.all {
		for _, key := range p.ref.Keys() {
			if !scan.seen[key] {
				scan.seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	res.foundKeys = keys
	for _, key := range keys {
		rec, ok := p.ref.EntryByKey(key)
		if !ok {
			res.unresolvedKeys = append(res.unresolvedKeys, key)
			continue
		}
		res.generated.AddEntry(rec.Clone())
	}
	p.resolveCrossRefs(res)
	if !res.IsEmpty() && len(p.ref.Preamble) > 0 {
		res.generated.Preamble = p.ref.Preamble.Clone()
	}
	p.insertStrings(res)
	return res
}

// resolveCrossRefs pulls in crossref parents, and their parents, until the
// generated database is closed under crossref.
func (p *AuxParser) resolveCrossRefs(res *AuxResult) {
	gen := res.generated
	for i := 0; i < len(gen.Entries); i++ {
		target := gen.Entries[i].CrossRef()
		if target == "" {
			continue
		}
		if _, ok := gen.EntryByKey(target); ok {
			continue
		}
		parent, ok := p.ref.EntryByKey(target)
		if !ok {
			// a cited key is already reported as unresolved
			if !slices.Contains(res.unresolvedCrossRefs, target) && !slices.Contains(res.unresolvedKeys, target) {
				res.unresolvedCrossRefs = append(res.unresolvedCrossRefs, target)
				p.log.Warn("crossref target not found",
					zap.String("key", gen.Entries[i].Key()),
					zap.String("crossref", target))
			}
			continue
		}
		gen.AddEntry(parent.Clone())
		res.crossRefEntriesCount++
	}
}

// insertStrings copies the @string definitions used by the generated entries,
// including strings referenced from other strings, in reference order.
func (p *AuxParser) insertStrings(res *AuxResult) {
	gen := res.generated
	queue := gen.Preamble.Macros()
	for _, rec := range gen.Entries {
		queue = append(queue, rec.Macros()...)
	}
	needed := make(map[string]bool)
	for len(queue) > 0 {
		name := strings.ToLower(queue[0])
		queue = queue[1:]
		if needed[name] {
			continue
		}
		s, ok := p.ref.StringByName(name)
		if !ok {
			continue // predefined (jan, feb, ...) or undefined
		}
		needed[name] = true
		queue = append(queue, s.Value.Macros()...)
	}
	for _, s := range p.ref.Strings() {
		if needed[strings.ToLower(s.Name)] {
			gen.AddString(&String{Name: s.Name, Value: s.Value.Clone(), line: s.line})
			res.insertedStrings++
		}
	}
}

type lineReader struct {
	r         *bufio.Reader
	rawBuffer []byte // using for reading
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReaderSize(r, 2048)}
}

// readLine reads the next line without the trailing EOL marker(s).
// If EOF is hit without a trailing endline, it will be omitted.
// If some bytes were read, then the error is never io.EOF.
// The result is only valid until the next call to readLine.
func (lr *lineReader) readLine() ([]byte, error) {
	line, err := lr.r.ReadSlice('\n')
	if err == bufio.ErrBufferFull {
		lr.rawBuffer = append(lr.rawBuffer[:0], line...)
		for err == bufio.ErrBufferFull {
			line, err = lr.r.ReadSlice('\n')
			lr.rawBuffer = append(lr.rawBuffer, line...)
		}
		line = lr.rawBuffer
	}
	if len(line) > 0 && err == io.EOF {
		err = nil
	}
	line = trimEOL(line)
	return line, err
}

func trimEOL(line []byte) []byte {
	n := len(line)
	if n > 0 && line[n-1] == '\n' {
		n--
	}
	if n > 0 && line[n-1] == '\r' {
		n--
	}
	return line[:n]
}
