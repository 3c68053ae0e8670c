package bibaux

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/parsly"
	"go.uber.org/zap"
)

const (
	LPAREN byte = '('
	RPAREN byte = ')'
	LBRACE byte = '{'
	RBRACE byte = '}'
	COMMA  byte = ','
	EQUAL  byte = '='
	AT     byte = '@'
	QUOTE  byte = '"'
	HASH   byte = '#'
)

// Options carries the collaborators shared by the bib reader and the aux parser.
// The zero value is usable.
type Options struct {
	Logger *zap.Logger
	FS     afs.Service
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o Options) fs() afs.Service {
	if o.FS == nil {
		return afs.New()
	}
	return o.FS
}

// Parse parses a bibtex database provided as io.Reader or
// a name of a file.
func Parse(r io.Reader, fileName string, opts Options) (*Database, error) {
	if r == nil {
		if fileName == "" {
			return nil, fmt.Errorf("nothing to parse")
		}
		f, err := os.Open(fileName)
		if err != nil {
			return nil, fmt.Errorf("can't process file %s: %w", fileName, err)
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("can't read %s: %w", fileName, err)
	}
	return newParser(data, fileName, opts).parse()
}

type parser struct {
	input    []byte
	fileName string
	log      *zap.Logger
}

func newParser(data []byte, fileName string, opts Options) *parser {
	return &parser{
		input:    []byte(decodeText(data)),
		fileName: fileName,
		log:      opts.logger(),
	}
}

// lineAt converts a byte offset into a 1-based line number.
func (p *parser) lineAt(offset int) int {
	if offset > len(p.input) {
		offset = len(p.input)
	}
	return bytes.Count(p.input[:offset], []byte{'\n'}) + 1
}

func (p *parser) errorAt(offset int, msg string) error {
	return fmt.Errorf("parsing error at %d: %s", p.lineAt(offset), msg)
}

func (p *parser) parse() (*Database, error) {
	db := NewDatabase(p.fileName)
	cursor := parsly.NewCursor(p.fileName, p.input, 0)
mainloop:
	for cursor.Pos < cursor.InputSize {
		matched := cursor.MatchAfterOptional(whitespaceMatcher, atMatcher, junkMatcher)
		switch matched.Code {
		case atToken:
		case junkToken:
			continue mainloop
		default:
			break mainloop
		}
		at := matched.Offset
		typ := cursor.MatchAfterOptional(whitespaceMatcher, nameMatcher)
		if typ.Code != nameToken {
			continue // a stray @ in junk text
		}
		typName := strings.ToLower(typ.Text(cursor))
		body := cursor.MatchAfterOptional(whitespaceMatcher, braceBlockMatcher, parenBlockMatcher)
		if body.Code != braceBlockToken && body.Code != parenBlockToken {
			if next := p.nextNonSpace(cursor.Pos); next == LBRACE || next == LPAREN {
				return db, p.errorAt(at, "unbalanced braces in @"+typName)
			}
			continue // e.g. an e-mail address in a comment
		}
		text := body.Text(cursor)
		inner := []byte(text[1 : len(text)-1])
		base := body.Offset + 1
		switch typName {
		case "comment":
			continue mainloop
		case "preamble":
			value, err := p.parseValue(parsly.NewCursor(p.fileName, inner, 0), base)
			if err != nil {
				return db, err
			}
			db.Preamble = append(db.Preamble, value...)
		case "string":
			err := p.parseFields(parsly.NewCursor(p.fileName, inner, 0), base, func(name string, value Value, offset int) {
				db.AddString(&String{Name: name, Value: value, line: p.lineAt(offset)})
			})
			if err != nil {
				return db, err
			}
		default:
			rec, err := p.parseEntry(typName, inner, base)
			if err != nil {
				return db, err
			}
			rec.line = p.lineAt(at)
			if _, dup := db.EntryByKey(rec.key); dup {
				p.log.Warn("duplicate citation key",
					zap.String("file", p.fileName),
					zap.String("key", rec.key),
					zap.Int("line", rec.line))
			}
			db.AddEntry(rec)
		}
	}
	return db, nil
}

func (p *parser) nextNonSpace(pos int) byte {
	for ; pos < len(p.input); pos++ {
		switch p.input[pos] {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return p.input[pos]
	}
	return 0
}

// parseEntry parses "key, name = value, ..." of a record body starting at base.
func (p *parser) parseEntry(typ string, body []byte, base int) (*Entry, error) {
	cursor := parsly.NewCursor(p.fileName, body, 0)
	rec := &Entry{typ: typ}
	if key := cursor.MatchAfterOptional(whitespaceMatcher, keyMatcher); key.Code == keyToken {
		rec.key = key.Text(cursor)
	}
	switch comma := cursor.MatchAfterOptional(whitespaceMatcher, commaMatcher); comma.Code {
	case commaToken:
	case parsly.EOF:
		return rec, nil // entry without fields
	default:
		return nil, p.errorAt(base+cursor.Pos, ", is missing after key "+rec.key)
	}
	err := p.parseFields(cursor, base, func(name string, value Value, offset int) {
		rec.fields = append(rec.fields, Field{key: name, value: value, line: p.lineAt(offset)})
	})
	return rec, err
}

// parseFields reads comma separated name = value pairs until the end of cursor.
// A trailing comma is allowed.
func (p *parser) parseFields(cursor *parsly.Cursor, base int, add func(name string, value Value, offset int)) error {
	for {
		name := cursor.MatchAfterOptional(whitespaceMatcher, nameMatcher)
		switch name.Code {
		case nameToken:
		case parsly.EOF:
			return nil
		default:
			return p.errorAt(base+cursor.Pos, "field name expected")
		}
		fldName := strings.ToLower(name.Text(cursor))
		offset := base + name.Offset
		if eq := cursor.MatchAfterOptional(whitespaceMatcher, equalMatcher); eq.Code != equalToken {
			return p.errorAt(offset, "= is missing after "+fldName)
		}
		value, err := p.parseValue(cursor, base)
		if err != nil {
			return err
		}
		add(fldName, value, offset)
		switch next := cursor.MatchAfterOptional(whitespaceMatcher, commaMatcher); next.Code {
		case commaToken:
		case parsly.EOF:
			return nil
		default:
			return p.errorAt(base+cursor.Pos, ", expected after "+fldName)
		}
	}
}

// parseValue reads Part ('#' Part)*.
func (p *parser) parseValue(cursor *parsly.Cursor, base int) (Value, error) {
	var value Value
	for {
		part := cursor.MatchAfterOptional(whitespaceMatcher, braceBlockMatcher, quotedMatcher, nameMatcher)
		switch part.Code {
		case braceBlockToken, quotedToken:
			text := part.Text(cursor)
			value = append(value, Part{Text: text[1 : len(text)-1]})
		case nameToken:
			text := part.Text(cursor)
			value = append(value, Part{Text: text, Macro: !isDigits(text)})
		default:
			return nil, p.errorAt(base+cursor.Pos, "value expected")
		}
		if hash := cursor.MatchAfterOptional(whitespaceMatcher, hashMatcher); hash.Code != hashToken {
			return value, nil
		}
	}
}
