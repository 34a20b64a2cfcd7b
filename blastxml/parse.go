// Package blastxml extracts hit summaries from BLAST XML result documents.
package blastxml

import (
	"bytes"
	"encoding/xml"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/blastx"
)

// ReadyMarker is present in a result document once the search has finished.
const ReadyMarker = "<BlastOutput_iterations>"

// Hit is one candidate match of a result document.
type Hit struct {
	Accession string
	Def       string
	HSPs      []HSP
}

// HSP is one sub-alignment of a hit. Values are kept as document text.
type HSP struct {
	BitScore string
	EValue   string
	Identity string
	AlignLen string
}

type xmlHit struct {
	Accession *string  `xml:"Hit_accession"`
	Def       *string  `xml:"Hit_def"`
	HSPs      []xmlHSP `xml:"Hit_hsps>Hsp"`
}

type xmlHSP struct {
	BitScore *string `xml:"Hsp_bit-score"`
	EValue   *string `xml:"Hsp_evalue"`
	Identity *string `xml:"Hsp_identity"`
	AlignLen *string `xml:"Hsp_align-len"`
}

func parseErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(blastx.ErrParse, format, args...)
}

// Parse returns the <Hit> elements of doc in document order, wherever they
// appear. The whole document must be well-formed XML with a single root
// element. Only the first limit hits are decoded and checked for required
// fields; limit <= 0 decodes all of them.
func Parse(doc []byte, limit int) ([]Hit, error) {
	dec := xml.NewDecoder(bytes.NewReader(doc))

	var (
		hits     []Hit
		seen     int
		depth    int
		rootSeen bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "invalid XML"), blastx.ErrParse)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				if rootSeen {
					return nil, parseErrorf("multiple root elements")
				}
				rootSeen = true
			}
			if t.Name.Local != "Hit" {
				depth++
				continue
			}

			seen++
			if limit > 0 && seen > limit {
				if err := dec.Skip(); err != nil {
					return nil, errors.Mark(errors.Wrap(err, "invalid XML"), blastx.ErrParse)
				}
				continue
			}

			var raw xmlHit
			if err := dec.DecodeElement(&raw, &t); err != nil {
				return nil, errors.Mark(errors.Wrapf(err, "hit %d", seen), blastx.ErrParse)
			}
			hit, err := raw.toHit(seen)
			if err != nil {
				return nil, err
			}
			hits = append(hits, hit)

		case xml.EndElement:
			depth--

		case xml.CharData:
			if depth == 0 && len(bytes.TrimSpace(t)) > 0 {
				return nil, parseErrorf("text outside the root element")
			}
		}
	}

	if !rootSeen {
		return nil, parseErrorf("empty document")
	}
	return hits, nil
}

func (h xmlHit) toHit(n int) (Hit, error) {
	if h.Accession == nil {
		return Hit{}, parseErrorf("hit %d: missing Hit_accession", n)
	}
	if h.Def == nil {
		return Hit{}, parseErrorf("hit %d: missing Hit_def", n)
	}
	if len(h.HSPs) == 0 {
		return Hit{}, parseErrorf("hit %d: no Hsp", n)
	}

	hit := Hit{
		Accession: strings.TrimSpace(*h.Accession),
		Def:       strings.TrimSpace(*h.Def),
		HSPs:      make([]HSP, 0, len(h.HSPs)),
	}
	for i, raw := range h.HSPs {
		fields := []struct {
			name string
			val  *string
		}{
			{"Hsp_bit-score", raw.BitScore},
			{"Hsp_evalue", raw.EValue},
			{"Hsp_identity", raw.Identity},
			{"Hsp_align-len", raw.AlignLen},
		}
		for _, f := range fields {
			if f.val == nil {
				return Hit{}, parseErrorf("hit %d hsp %d: missing %s", n, i+1, f.name)
			}
		}
		hit.HSPs = append(hit.HSPs, HSP{
			BitScore: strings.TrimSpace(*raw.BitScore),
			EValue:   strings.TrimSpace(*raw.EValue),
			Identity: strings.TrimSpace(*raw.Identity),
			AlignLen: strings.TrimSpace(*raw.AlignLen),
		})
	}
	return hit, nil
}

// PercentIdentity returns identities / alignLen * 100 rounded to two
// decimals and suffixed with "%".
func PercentIdentity(identities, alignLen float64) (string, error) {
	if alignLen == 0 {
		return "", parseErrorf("alignment length is zero")
	}
	pct := identities / alignLen * 100
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return "", parseErrorf("identity %v / length %v is not a number", identities, alignLen)
	}
	return strconv.FormatFloat(pct, 'f', 2, 64) + "%", nil
}

// Row summarizes the hit from its first sub-alignment.
func (h Hit) Row() (blastx.Row, error) {
	if len(h.HSPs) == 0 {
		return blastx.Row{}, parseErrorf("hit %s: no Hsp", h.Accession)
	}
	hsp := h.HSPs[0]

	identities, err := strconv.ParseFloat(hsp.Identity, 64)
	if err != nil {
		return blastx.Row{}, parseErrorf("hit %s: Hsp_identity %q is not a number", h.Accession, hsp.Identity)
	}
	alignLen, err := strconv.ParseFloat(hsp.AlignLen, 64)
	if err != nil {
		return blastx.Row{}, parseErrorf("hit %s: Hsp_align-len %q is not a number", h.Accession, hsp.AlignLen)
	}
	pct, err := PercentIdentity(identities, alignLen)
	if err != nil {
		return blastx.Row{}, errors.Wrapf(err, "hit %s", h.Accession)
	}

	return blastx.Row{
		Score:       hsp.BitScore,
		EValue:      hsp.EValue,
		MaxIdent:    pct,
		Accession:   h.Accession,
		Description: h.Def,
	}, nil
}

// Extract returns one row for each of the first blastx.HitCap hits of doc,
// in document order. On error no rows are returned.
func Extract(doc []byte) ([]blastx.Row, error) {
	hits, err := Parse(doc, blastx.HitCap)
	if err != nil {
		return nil, err
	}

	rows := make([]blastx.Row, 0, len(hits))
	for _, h := range hits {
		row, err := h.Row()
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}
