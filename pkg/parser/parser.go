package parser

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Record represents a single JSON object
type Record map[string]interface{}

// Parser streams the records of a table data file. A file is either a JSON
// document (one object, an array of objects, or concatenated objects) or
// JSON Lines when its name ends in .jsonl.
type Parser struct {
	source  io.ReadCloser
	isJSONL bool

	// JSON Lines
	scanner *bufio.Scanner
	line    int

	// JSON
	bufReader *bufio.Reader
	decoder   *json.Decoder
	started   bool
	inArray   bool
	read      int
}

// NewParser opens filename for reading. "-" reads from stdin.
func NewParser(filename string) (*Parser, error) {
	if filename == "" {
		return nil, errors.New("no data file given")
	}
	if filename == "-" {
		return NewReader(io.NopCloser(os.Stdin), false), nil
	}
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return NewReader(file, strings.HasSuffix(strings.ToLower(filename), ".jsonl")), nil
}

// NewReader reads records from r, closing it with the parser when it is
// an io.Closer.
func NewReader(r io.Reader, jsonl bool) *Parser {
	rc, ok := r.(io.ReadCloser)
	if !ok {
		rc = io.NopCloser(r)
	}
	p := &Parser{source: rc, isJSONL: jsonl}
	if jsonl {
		p.scanner = bufio.NewScanner(rc)
		p.scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	} else {
		p.bufReader = bufio.NewReader(rc)
		p.decoder = json.NewDecoder(p.bufReader)
	}
	return p
}

// Close closes the underlying source.
func (p *Parser) Close() error {
	return p.source.Close()
}

// IsJSONL returns whether the parser is treating the input as JSONL
func (p *Parser) IsJSONL() bool {
	return p.isJSONL
}

// Read returns the next record, or io.EOF when the input is exhausted.
func (p *Parser) Read() (Record, error) {
	if p.isJSONL {
		return p.readLine()
	}
	return p.readDocument()
}

func (p *Parser) readLine() (Record, error) {
	for p.scanner.Scan() {
		p.line++
		line := strings.TrimSpace(p.scanner.Text())
		if line == "" {
			continue
		}
		var record Record
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return nil, fmt.Errorf("failed to parse JSONL record at line %d: %w", p.line, err)
		}
		if record == nil {
			return nil, fmt.Errorf("line %d is not an object", p.line)
		}
		return record, nil
	}
	if err := p.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (p *Parser) readDocument() (Record, error) {
	if !p.started {
		// Peek first non-whitespace byte
	peek:
		for {
			b, err := p.bufReader.Peek(1)
			if err != nil {
				return nil, err
			}
			switch b[0] {
			case ' ', '\n', '\t', '\r':
				p.bufReader.ReadByte()
			case '[':
				if _, err := p.decoder.Token(); err != nil {
					return nil, err
				}
				p.inArray = true
				break peek
			default:
				break peek
			}
		}
		p.started = true
	}

	if p.inArray && !p.decoder.More() {
		// Consume closing ']'
		t, err := p.decoder.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to decode JSON array: %w", err)
		}
		if delim, ok := t.(json.Delim); !ok || delim != ']' {
			return nil, fmt.Errorf("expected array end, got %v", t)
		}
		p.inArray = false
		return nil, io.EOF
	}

	var raw interface{}
	if err := p.decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to decode JSON record %d: %w", p.read, err)
	}
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("record %d is not an object but %T", p.read, raw)
	}
	p.read++
	return obj, nil
}

// ReadAll reads the remaining records.
func (p *Parser) ReadAll() ([]Record, error) {
	var records []Record
	for {
		r, err := p.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
}
