package xunit

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding/htmlindex"
)

const (
	elemSuite  = "testsuite"
	elemSuites = "testsuites"
)

var (
	ErrUnknownRoot     = errors.New("unknown xunit root element")
	ErrNegativeCounter = errors.New("negative test counter")
	ErrInconsistent    = errors.New("failures and errors exceed total tests")
	ErrTrailingData    = errors.New("junk after document element")
)

// Report holds the counters of a single xunit file.
type Report struct {
	Tests    int
	Failures int
	Errors   int
	// Time is the elapsed time in seconds.
	Time float64
}

// HasIssues reports whether the file contains failed or errored tests.
func (r Report) HasIssues() bool {
	return r.Failures > 0 || r.Errors > 0
}

// ParseError is returned when a report file cannot be read or decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("parse xunit report: %v", e.Err)
	}

	return fmt.Sprintf("parse xunit report %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type suite struct {
	Tests    *int    `xml:"tests,attr"`
	Failures int     `xml:"failures,attr"`
	Errors   int     `xml:"errors,attr"`
	Time     float64 `xml:"time,attr"`
	Suites   []suite `xml:"testsuite"`
}

type document struct {
	XMLName xml.Name
	suite
}

// ReadFile opens the report at pth and decodes it. The file is closed before returning.
func ReadFile(pth string) (Report, error) {
	file, err := os.Open(pth)
	if err != nil {
		return Report{}, &ParseError{Path: pth, Err: fmt.Errorf("os.Open: %w", err)}
	}

	defer file.Close()

	report, err := Decode(file)
	if err != nil {
		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			parseErr.Path = pth
		}

		return Report{}, err
	}

	return report, nil
}

// Decode reads a <testsuite> or <testsuites> document. A <testsuites> root without
// its own counters is summed up from the nested suites.
func Decode(r io.Reader) (Report, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return Report{}, &ParseError{Err: fmt.Errorf("xml.Decode: %w", err)}
	}

	if err := expectEOF(dec); err != nil {
		return Report{}, &ParseError{Err: err}
	}

	var report Report
	switch doc.XMLName.Local {
	case elemSuite:
		report = doc.suite.report()
	case elemSuites:
		if doc.Tests != nil {
			report = doc.suite.report()
			break
		}

		for _, s := range doc.Suites {
			report = report.add(s.sum())
		}
	default:
		return Report{}, &ParseError{Err: fmt.Errorf("%w: <%s>", ErrUnknownRoot, doc.XMLName.Local)}
	}

	if err := report.validate(); err != nil {
		return Report{}, &ParseError{Err: err}
	}

	return report, nil
}

// expectEOF drains the decoder after the root element. Only comments, processing
// instructions and whitespace may follow it.
func expectEOF(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("xml.Decoder Token: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			return fmt.Errorf("%w: <%s>", ErrTrailingData, t.Name.Local)
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return fmt.Errorf("%w: %q", ErrTrailingData, bytes.TrimSpace(t))
			}
		}
	}
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("htmlindex.Get: %w", err)
	}

	return enc.NewDecoder().Reader(input), nil
}

func (r Report) validate() error {
	if r.Tests < 0 || r.Failures < 0 || r.Errors < 0 || r.Time < 0 {
		return ErrNegativeCounter
	}

	if r.Failures+r.Errors > r.Tests {
		return fmt.Errorf("%w: tests=%d failures=%d errors=%d", ErrInconsistent, r.Tests, r.Failures, r.Errors)
	}

	return nil
}

func (r Report) add(o Report) Report {
	return Report{
		Tests:    r.Tests + o.Tests,
		Failures: r.Failures + o.Failures,
		Errors:   r.Errors + o.Errors,
		Time:     r.Time + o.Time,
	}
}

func (s suite) report() Report {
	var tests int
	if s.Tests != nil {
		tests = *s.Tests
	}

	return Report{
		Tests:    tests,
		Failures: s.Failures,
		Errors:   s.Errors,
		Time:     s.Time,
	}
}

// sum prefers the suite's own counters and falls back to its nested suites.
func (s suite) sum() Report {
	if s.Tests != nil || len(s.Suites) == 0 {
		return s.report()
	}

	var total Report
	for _, child := range s.Suites {
		total = total.add(child.sum())
	}

	return total
}
