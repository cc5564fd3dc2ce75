package plist

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// DateLayout is the absolute-time text format of a <date> element.
const DateLayout = "2006-01-02T15:04:05Z"

// realPattern accepts decimal and exponent notation only. ParseFloat alone
// would also take hex floats, NaN and Inf.
var realPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// DecodeError reports malformed plist structure at Path.
type DecodeError struct {
	Path string
	Tag  string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("plist: %s <%s>: %v", e.Path, e.Tag, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var (
	ErrUnknownTag    = errors.New("unknown element")
	ErrOddDict       = errors.New("dict children must alternate key and value")
	ErrKeyPosition   = errors.New("key element in value position")
	ErrExpectedKey   = errors.New("expected key element")
	ErrEmptyPlist    = errors.New("plist element holds no value")
	ErrPlistSiblings = errors.New("plist element holds more than one value")
	ErrRealSyntax    = errors.New("real must be a decimal or exponent literal")
)

// Option configures a Decoder.
type Option func(*Decoder)

// WithoutNormalization keeps <string> and <key> text byte-for-byte instead
// of composing combining characters (NFC).
func WithoutNormalization() Option {
	return func(d *Decoder) { d.form = nil }
}

// Decoder converts Element trees into Values.
type Decoder struct {
	form *norm.Form
}

// NewDecoder returns a Decoder. Strings are NFC-normalised unless
// WithoutNormalization is given.
func NewDecoder(opts ...Option) *Decoder {
	nfc := norm.NFC
	d := &Decoder{form: &nfc}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode converts el with the default Decoder.
func Decode(el *Element) (Value, error) {
	return NewDecoder().Decode(el)
}

// DecodeReader parses an XML plist from r.
func (d *Decoder) DecodeReader(r io.Reader) (Value, error) {
	root, err := ParseTree(r)
	if err != nil {
		return nil, err
	}
	return d.Decode(root)
}

// DecodeFile parses the XML plist stored at path.
func (d *Decoder) DecodeFile(path string) (Value, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plist: %w", err)
	}
	defer f.Close()
	return d.DecodeReader(f)
}

// Decode converts el into a Value. el is either a <plist> document element
// or a value element. The first malformed element aborts the decode.
func (d *Decoder) Decode(el *Element) (Value, error) {
	if el.Name != "plist" {
		return d.decode(el, el.Name)
	}
	switch len(el.Children) {
	case 0:
		return nil, &DecodeError{Path: "plist", Tag: el.Name, Err: ErrEmptyPlist}
	case 1:
		child := el.Children[0]
		return d.decode(child, "plist/"+child.Name)
	default:
		return nil, &DecodeError{Path: "plist", Tag: el.Name, Err: ErrPlistSiblings}
	}
}

func (d *Decoder) decode(el *Element, path string) (Value, error) {
	fail := func(err error) (Value, error) {
		return nil, &DecodeError{Path: path, Tag: el.Name, Err: err}
	}

	switch el.Name {
	case "string":
		return String(d.normalize(el.Text)), nil
	case "integer":
		n, err := strconv.ParseInt(strings.TrimSpace(el.Text), 10, 64)
		if err != nil {
			return fail(err)
		}
		return Integer(n), nil
	case "real":
		text := strings.TrimSpace(el.Text)
		if !realPattern.MatchString(text) {
			return fail(ErrRealSyntax)
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return fail(err)
		}
		return Real{Float: f, Precision: precisionOf(text)}, nil
	case "true", "false":
		return Boolean{Bool: el.Name == "true", Token: el.Name}, nil
	case "date":
		text := strings.TrimSpace(el.Text)
		t, err := time.Parse(DateLayout, text)
		if err != nil {
			return fail(err)
		}
		return Date{Time: t, Text: text}, nil
	case "data":
		b, err := base64.StdEncoding.DecodeString(stripSpace(el.Text))
		if err != nil {
			return fail(err)
		}
		return Data{b: b}, nil
	case "array":
		items := make([]Value, 0, len(el.Children))
		for i, child := range el.Children {
			v, err := d.decode(child, fmt.Sprintf("%s[%d]/%s", path, i, child.Name))
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return &Array{items: items}, nil
	case "dict":
		return d.decodeDict(el, path)
	case "key":
		return fail(ErrKeyPosition)
	default:
		return fail(ErrUnknownTag)
	}
}

func (d *Decoder) decodeDict(el *Element, path string) (Value, error) {
	if len(el.Children)%2 != 0 {
		return nil, &DecodeError{Path: path, Tag: el.Name, Err: ErrOddDict}
	}

	entries := make([]Entry, 0, len(el.Children)/2)
	for i := 0; i < len(el.Children); i += 2 {
		keyEl, valEl := el.Children[i], el.Children[i+1]
		if keyEl.Name != "key" {
			return nil, &DecodeError{
				Path: fmt.Sprintf("%s[%d]/%s", path, i, keyEl.Name),
				Tag:  keyEl.Name,
				Err:  ErrExpectedKey,
			}
		}
		key := d.normalize(keyEl.Text)
		v, err := d.decode(valEl, fmt.Sprintf("%s[%q]/%s", path, key, valEl.Name))
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Key: key, Value: v})
	}
	return NewDict(entries...), nil
}

func (d *Decoder) normalize(s string) string {
	if d.form == nil {
		return s
	}
	return d.form.String(s)
}

// precisionOf counts fractional digits of a decimal literal; exponent
// notation yields -1 (shortest representation).
func precisionOf(text string) int {
	if strings.ContainsAny(text, "eE") {
		return -1
	}
	dot := strings.IndexByte(text, '.')
	if dot < 0 {
		return 0
	}
	return len(text) - dot - 1
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
}
