package vectorize

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chriscorrea/licmatch/internal/errs"
	"github.com/chriscorrea/licmatch/internal/store"
)

const mmHeader = "%%MatrixMarket matrix coordinate real general"

// Matrix is a term-document matrix: one sparse row per document, in corpus order.
type Matrix struct {
	Names            []string       // document names, row order
	NumTerms         int            // vocabulary size at build time
	VocabFingerprint string         // fingerprint of the vocabulary the rows index into
	Rows             []SparseVector // term counts per document
}

// NumDocs returns the number of documents.
func (m *Matrix) NumDocs() int {
	return len(m.Rows)
}

// NNZ returns the number of nonzero cells.
func (m *Matrix) NNZ() int {
	n := 0
	for _, r := range m.Rows {
		n += r.Len()
	}
	return n
}

// WriteMatrixMarket writes m in Matrix Market coordinate format. Document names
// and the vocabulary fingerprint travel in comment lines; cells are 1-based
// "doc term count" triples.
func WriteMatrixMarket(w io.Writer, m *Matrix) error {
	if len(m.Names) != len(m.Rows) {
		return fmt.Errorf("matrix has %d names for %d rows", len(m.Names), len(m.Rows))
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, mmHeader)
	fmt.Fprintf(bw, "%% vocabulary %s\n", m.VocabFingerprint)
	for i, name := range m.Names {
		fmt.Fprintf(bw, "%% document %d %s\n", i+1, strconv.Quote(name))
	}
	fmt.Fprintf(bw, "%d %d %d\n", m.NumDocs(), m.NumTerms, m.NNZ())
	for doc, row := range m.Rows {
		for i, id := range row.IDs {
			fmt.Fprintf(bw, "%d %d %s\n", doc+1, id+1, strconv.FormatFloat(row.Counts[i], 'g', -1, 64))
		}
	}
	return bw.Flush()
}

// ReadMatrixMarket parses a matrix written by WriteMatrixMarket.
func ReadMatrixMarket(r io.Reader) (*Matrix, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		return nil, fmt.Errorf("missing header: %w", scanErr(scanner))
	}
	if !strings.EqualFold(strings.TrimSpace(scanner.Text()), mmHeader) {
		return nil, fmt.Errorf("unsupported header %q", scanner.Text())
	}

	m := &Matrix{}
	names := make(map[int]string)
	var docs, terms, nnz int
	sized := false

	for !sized && scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "%"):
			if err := parseComment(line, m, names); err != nil {
				return nil, err
			}
		default:
			if _, err := fmt.Sscan(line, &docs, &terms, &nnz); err != nil {
				return nil, fmt.Errorf("bad size line %q: %w", line, err)
			}
			if docs < 0 || terms < 0 || nnz < 0 {
				return nil, fmt.Errorf("negative size in %q", line)
			}
			sized = true
		}
	}
	if !sized {
		return nil, fmt.Errorf("missing size line: %w", scanErr(scanner))
	}

	m.NumTerms = terms
	m.Names = make([]string, docs)
	for i := range m.Names {
		name, ok := names[i+1]
		if !ok {
			return nil, fmt.Errorf("missing name for document %d", i+1)
		}
		m.Names[i] = name
	}

	counts := make([]map[int]float64, docs)
	for i := range counts {
		counts[i] = make(map[int]float64)
	}

	read := 0
	for read < nnz && scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		var doc, term int
		var value float64
		if _, err := fmt.Sscan(line, &doc, &term, &value); err != nil {
			return nil, fmt.Errorf("bad entry %q: %w", line, err)
		}
		if doc < 1 || doc > docs || term < 1 || term > terms {
			return nil, fmt.Errorf("entry %q out of range %dx%d", line, docs, terms)
		}
		if value <= 0 {
			return nil, fmt.Errorf("entry %q has non-positive count", line)
		}
		counts[doc-1][term-1] += value
		read++
	}
	if read < nnz {
		return nil, fmt.Errorf("truncated: read %d of %d entries: %w", read, nnz, scanErr(scanner))
	}

	m.Rows = make([]SparseVector, docs)
	for i, c := range counts {
		m.Rows[i] = fromCounts(c)
	}
	return m, nil
}

func parseComment(line string, m *Matrix, names map[int]string) error {
	fields := strings.Fields(strings.TrimPrefix(line, "%"))
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "vocabulary":
		if len(fields) != 2 {
			return fmt.Errorf("bad vocabulary comment %q", line)
		}
		m.VocabFingerprint = fields[1]
	case "document":
		rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(strings.TrimPrefix(line, "%")), "document"))
		numStr, quoted, ok := strings.Cut(rest, " ")
		if !ok {
			return fmt.Errorf("bad document comment %q", line)
		}
		num, err := strconv.Atoi(numStr)
		if err != nil {
			return fmt.Errorf("bad document number in %q: %w", line, err)
		}
		name, err := strconv.Unquote(strings.TrimSpace(quoted))
		if err != nil {
			return fmt.Errorf("bad document name in %q: %w", line, err)
		}
		if _, dup := names[num]; dup {
			return fmt.Errorf("document %d named twice", num)
		}
		names[num] = name
	}
	return nil
}

func scanErr(s *bufio.Scanner) error {
	if err := s.Err(); err != nil {
		return err
	}
	return io.ErrUnexpectedEOF
}

// SaveMatrix writes m to path in Matrix Market format.
func SaveMatrix(path string, m *Matrix) error {
	var buf bytes.Buffer
	if err := WriteMatrixMarket(&buf, m); err != nil {
		return errs.Persistence("save", path, err)
	}
	if err := store.WriteAtomic(path, buf.Bytes()); err != nil {
		return errs.Persistence("save", path, err)
	}
	return nil
}

// LoadMatrix reads a matrix written by SaveMatrix.
func LoadMatrix(path string) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Persistence("load", path, err)
	}
	defer f.Close()

	m, err := ReadMatrixMarket(f)
	if err != nil {
		return nil, errs.Persistence("load", path, err)
	}
	return m, nil
}
