// Package fasta reads and writes FASTA sequence collections.
package fasta

import (
	"bufio"
	"compress/gzip"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/blastx"
)

// Read parses FASTA records from r in file order.
//
// A line starting with '>' introduces an identifier; every '>' is removed
// from the trimmed line. Residue lines are trimmed and concatenated until
// the next identifier. A repeated identifier replaces the residues of the
// earlier record but keeps its position. Residues appearing before the first
// identifier are rejected with blastx.ErrInvalidInput.
func Read(r io.Reader) ([]blastx.Sequence, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var (
		records []blastx.Sequence
		index   = make(map[string]int)
		id      string
		started bool
		seq     strings.Builder
		lineNo  int
	)

	flush := func() {
		if !started {
			return
		}
		rec := blastx.Sequence{ID: id, Residues: seq.String()}
		if i, ok := index[id]; ok {
			records[i] = rec
		} else {
			index[id] = len(records)
			records = append(records, rec)
		}
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, ">") {
			flush()
			id = strings.ReplaceAll(line, ">", "")
			started = true
			seq.Reset()
			continue
		}
		if line == "" {
			continue
		}
		if !started {
			return nil, errors.Wrapf(blastx.ErrInvalidInput, "line %d: residues before the first identifier", lineNo)
		}
		seq.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read FASTA")
	}
	flush()

	return records, nil
}

// Write serializes records in order. Residues are wrapped at width
// characters per line; width <= 0 writes each residue string on one line.
func Write(w io.Writer, records []blastx.Sequence, width int) error {
	bw := bufio.NewWriter(w)
	for _, rec := range records {
		if _, err := bw.WriteString(">" + rec.ID + "\n"); err != nil {
			return errors.Wrap(err, "failed to write FASTA header")
		}
		res := rec.Residues
		for len(res) > 0 {
			n := len(res)
			if width > 0 && n > width {
				n = width
			}
			if _, err := bw.WriteString(res[:n] + "\n"); err != nil {
				return errors.Wrap(err, "failed to write FASTA residues")
			}
			res = res[n:]
		}
	}
	return errors.Wrap(bw.Flush(), "failed to flush FASTA output")
}

// Open opens path for reading. "-" reads stdin and a ".gz" suffix is
// decompressed transparently.
func Open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	if strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(fh)
		if err != nil {
			_ = fh.Close()
			return nil, errors.Wrapf(err, "failed to open gzip stream %s", path)
		}
		return struct {
			io.Reader
			io.Closer
		}{Reader: gr, Closer: fh}, nil
	}
	return fh, nil
}

// ReadFile opens and parses the FASTA file at path.
func ReadFile(path string) ([]blastx.Sequence, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	records, err := Read(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return records, nil
}
