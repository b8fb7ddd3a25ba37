package pipeline

import (
	"bytes"
	"fmt"
	"os"

	"github.com/agusespa/upgradescope/internal/parser"
	"github.com/agusespa/upgradescope/internal/phpast"
	"github.com/agusespa/upgradescope/internal/types"
)

// Sources memoizes file reads, parses and extractions for one run. Vendor
// files are kept as extracted records only, their syntax trees are released
// right after extraction. Trees are retained for consumer files, which usage
// analysis walks, until Close.
type Sources struct {
	parser  *parser.PHPParser
	files   map[string]*sourceEntry
	classes map[string]*classEntry
}

type sourceEntry struct {
	file *parser.File
	err  error
}

type classEntry struct {
	classes []types.ClassLikeInfo
	err     error
}

func NewSources(pp *parser.PHPParser) *Sources {
	return &Sources{
		parser:  pp,
		files:   map[string]*sourceEntry{},
		classes: map[string]*classEntry{},
	}
}

// File returns the parsed file at path. A file with syntax errors is returned
// together with its parse error.
func (s *Sources) File(path string) (*parser.File, error) {
	if e, ok := s.files[path]; ok {
		return e.file, e.err
	}
	e := &sourceEntry{}
	content, err := os.ReadFile(path)
	if err != nil {
		e.err = fmt.Errorf("failed to read %s: %w", path, err)
	} else {
		e.file, e.err = s.parser.Parse(path, content)
	}
	s.files[path] = e
	return e.file, e.err
}

// Names returns the FQCN of every declaration in path without keeping the
// file. Names recovered from a file with syntax errors are returned alongside
// the parse error.
func (s *Sources) Names(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return s.parser.ExtractNames(path, content)
}

// Classes returns the structural records of every declaration in path. Files
// with syntax errors yield an error and no records.
func (s *Sources) Classes(path string) ([]types.ClassLikeInfo, error) {
	if e, ok := s.classes[path]; ok {
		return e.classes, e.err
	}
	e := &classEntry{}
	content, err := os.ReadFile(path)
	if err != nil {
		e.err = fmt.Errorf("failed to read %s: %w", path, err)
	} else {
		e.classes, e.err = s.parser.Extract(path, content)
	}
	s.classes[path] = e
	return e.classes, e.err
}

// Class returns the record of fqcn declared in path.
func (s *Sources) Class(path, fqcn string) (*types.ClassLikeInfo, error) {
	classes, err := s.Classes(path)
	if err != nil {
		return nil, err
	}
	want := types.NormalizeFQCN(fqcn)
	for i := range classes {
		if classes[i].FQCN == want {
			return &classes[i], nil
		}
	}
	return nil, fmt.Errorf("%s not declared in %s", want, path)
}

// Retained reports how many syntax trees are held.
func (s *Sources) Retained() int {
	return len(s.files)
}

// Dependent is a consumer declaration ready for usage analysis.
type Dependent struct {
	File *parser.File
	Decl phpast.Declaration
	Info types.ClassLikeInfo
	// Text is the file with everything outside the declaration blanked, so
	// line numbers match the file.
	Text []byte
}

// Dependent locates fqcn in path. Partially parsed files are accepted as long
// as the declaration itself was recovered.
func (s *Sources) Dependent(path, fqcn string) (*Dependent, error) {
	f, err := s.File(path)
	if f == nil {
		return nil, err
	}
	decl, ok := f.Declaration(fqcn)
	if !ok {
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%s not declared in %s", fqcn, path)
	}
	return &Dependent{
		File: f,
		Decl: decl,
		Info: parser.ExtractDeclaration(decl, f.Source),
		Text: isolate(f, decl),
	}, nil
}

func isolate(f *parser.File, decl phpast.Declaration) []byte {
	out := bytes.Clone(f.Source)
	start, end := int(decl.Node.StartByte()), int(decl.Node.EndByte())
	for i := range out {
		if (i < start || i >= end) && out[i] != '\n' {
			out[i] = ' '
		}
	}
	return out
}

func (s *Sources) Close() {
	for _, e := range s.files {
		e.file.Close()
	}
	s.files = map[string]*sourceEntry{}
	s.classes = map[string]*classEntry{}
}
