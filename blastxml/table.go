package blastxml

import (
	"bufio"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/blastx"
)

// FormatTable renders the header and rows as tab-separated lines joined by
// newlines. There is no trailing newline.
func FormatTable(rows []blastx.Row) string {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, strings.Join(blastx.TableHeader, "\t"))
	for _, r := range rows {
		lines = append(lines, strings.Join(r.Fields(), "\t"))
	}
	return strings.Join(lines, "\n")
}

// WriteTable writes FormatTable(rows) to w.
func WriteTable(w io.Writer, rows []blastx.Row) error {
	_, err := io.WriteString(w, FormatTable(rows))
	return errors.Wrap(err, "failed to write table")
}

// ExtractTable extracts doc and renders the table. Nothing is rendered when
// extraction fails.
func ExtractTable(doc []byte) (string, error) {
	rows, err := Extract(doc)
	if err != nil {
		return "", err
	}
	return FormatTable(rows), nil
}

// ParseTable reads a table produced by FormatTable.
func ParseTable(r io.Reader) ([]blastx.Row, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, errors.Wrap(err, "failed to read table")
		}
		return nil, errors.Wrap(blastx.ErrInvalidInput, "empty table")
	}
	header := strings.TrimRight(scanner.Text(), "\r")
	if header != strings.Join(blastx.TableHeader, "\t") {
		return nil, errors.Wrapf(blastx.ErrInvalidInput, "unexpected table header %q", header)
	}

	var rows []blastx.Row
	lineNo := 1
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		f := strings.SplitN(line, "\t", len(blastx.TableHeader))
		if len(f) != len(blastx.TableHeader) {
			return nil, errors.Wrapf(blastx.ErrInvalidInput, "line %d: expected %d columns, got %d", lineNo, len(blastx.TableHeader), len(f))
		}
		rows = append(rows, blastx.Row{
			Score:       f[0],
			EValue:      f[1],
			MaxIdent:    f[2],
			Accession:   f[3],
			Description: f[4],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read table")
	}
	return rows, nil
}
