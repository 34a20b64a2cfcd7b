package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/letmevibethatforyou/blastx"
)

// fakeSearcher returns a scripted document or error per sequence id.
type fakeSearcher struct {
	docs  map[string]string
	errs  map[string]error
	calls []string
}

func (f *fakeSearcher) Search(ctx context.Context, seq blastx.Sequence) (*blastx.RawResult, error) {
	f.calls = append(f.calls, seq.ID)
	if err, ok := f.errs[seq.ID]; ok {
		return nil, err
	}
	return &blastx.RawResult{
		Job:      blastx.Job{RID: "RID-" + seq.ID, Sequence: seq},
		Document: []byte(f.docs[seq.ID]),
		Attempts: 2,
	}, nil
}

// recordingWait records every requested wait without sleeping.
type recordingWait struct {
	waits []time.Duration
}

func (w *recordingWait) wait(ctx context.Context, d time.Duration) error {
	w.waits = append(w.waits, d)
	return nil
}

func resultDocument(accessions ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?>` + "\n<BlastOutput>\n<BlastOutput_iterations>\n<Iteration>\n<Iteration_hits>\n")
	for i, acc := range accessions {
		fmt.Fprintf(&b, "<Hit><Hit_num>%d</Hit_num><Hit_accession>%s</Hit_accession><Hit_def>Paramecium caudatum strain %d 18S</Hit_def>", i+1, acc, i+1)
		b.WriteString("<Hit_hsps><Hsp><Hsp_bit-score>824.5</Hsp_bit-score><Hsp_evalue>0</Hsp_evalue>")
		b.WriteString("<Hsp_identity>45</Hsp_identity><Hsp_align-len>50</Hsp_align-len></Hsp></Hit_hsps></Hit>\n")
	}
	b.WriteString("</Iteration_hits>\n</Iteration>\n</BlastOutput_iterations>\n</BlastOutput>\n")
	return b.String()
}

func sequences(ids ...string) []blastx.Sequence {
	seqs := make([]blastx.Sequence, len(ids))
	for i, id := range ids {
		seqs[i] = blastx.Sequence{ID: id, Residues: "ACGTACGT"}
	}
	return seqs
}
