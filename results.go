package blastx

import (
	"strconv"
	"strings"
)

// TableHeader lists the column names of an extracted hit table.
var TableHeader = []string{"Score", "E_value", "Max_Ident", "Hit_accession", "Organism"}

// Row is one extracted hit.
type Row struct {
	// Score is the bit score, verbatim from the result document.
	Score string
	// EValue is the expectation value, verbatim from the result document.
	EValue string
	// MaxIdent is the percent identity, e.g. "90.00%".
	MaxIdent string
	// Accession is the hit accession.
	Accession string
	// Description is the hit definition line.
	Description string
}

// Fields returns the row in TableHeader order.
func (r Row) Fields() []string {
	return []string{r.Score, r.EValue, r.MaxIdent, r.Accession, r.Description}
}

// Species returns the first two words of the description, which for
// GenBank definition lines is the binomial name.
func (r Row) Species() string {
	words := strings.Fields(r.Description)
	if len(words) > 2 {
		words = words[:2]
	}
	return strings.Join(words, " ")
}

// Identity returns MaxIdent as a number without the percent sign.
func (r Row) Identity() (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSuffix(r.MaxIdent, "%"), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// HitDocument is a hit catalog document built from an extracted row.
type HitDocument struct {
	// ID is "<sequence_id>#<rank>".
	ID string
	// Fields contains the document fields as key-value pairs.
	Fields map[string]interface{}
}

// Catalog field names.
const (
	FieldSequenceID = "sequence_id"
	FieldRank       = "rank"
	FieldScore      = "score"
	FieldEValue     = "e_value"
	FieldMaxIdent   = "max_ident"
	FieldAccession  = "hit_accession"
	FieldOrganism   = "organism"
	FieldSpecies    = "species"
	FieldTaxopath   = "taxopath"
)

// HitID returns the catalog object id of the hit at rank (1-based).
func HitID(sequenceID string, rank int) string {
	return sequenceID + "#" + strconv.Itoa(rank)
}

// NewHitDocuments converts the rows extracted for sequenceID into catalog
// documents. Numeric columns that fail to parse are left out.
func NewHitDocuments(sequenceID string, rows []Row) []HitDocument {
	docs := make([]HitDocument, 0, len(rows))
	for i, r := range rows {
		fields := map[string]interface{}{
			FieldSequenceID: sequenceID,
			FieldRank:       i + 1,
			FieldAccession:  r.Accession,
			FieldOrganism:   r.Description,
			FieldSpecies:    r.Species(),
		}
		if f, err := strconv.ParseFloat(r.Score, 64); err == nil {
			fields[FieldScore] = f
		}
		if f, err := strconv.ParseFloat(r.EValue, 64); err == nil {
			fields[FieldEValue] = f
		}
		if f, ok := r.Identity(); ok {
			fields[FieldMaxIdent] = f
		}
		docs = append(docs, HitDocument{ID: HitID(sequenceID, i+1), Fields: fields})
	}
	return docs
}

// Hit represents a single catalog query result.
type Hit struct {
	// ID is the catalog object id.
	ID string

	// Score represents the relevance score of this hit within the query.
	Score float64

	// Fields contains the document fields as key-value pairs.
	Fields map[string]interface{}
}

// HitPage represents a page of catalog query results with metadata.
type HitPage struct {
	// Items contains the individual hits.
	Items []Hit

	// Total is the total number of matching documents.
	Total int64

	// Took is the time taken to execute the query in milliseconds.
	Took int64

	// MaxScore is the maximum relevance score across all hits.
	MaxScore float64

	// Query is the original query string for reference.
	Query string

	// NextOffset can be used for pagination.
	NextOffset *int
}
