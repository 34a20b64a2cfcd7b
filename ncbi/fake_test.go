package ncbi

import (
	"context"
	"strings"
	"sync"
	"time"
)

// scriptedTransport replays responses in order and records every request.
// Once the script runs out the last response is repeated.
type scriptedTransport struct {
	mu        sync.Mutex
	responses []*Response
	errs      []error
	requests  []*Request
}

func (s *scriptedTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := len(s.requests)
	s.requests = append(s.requests, req)

	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if len(s.responses) == 0 {
		return &Response{StatusCode: 200}, nil
	}
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	return s.responses[i], nil
}

func (s *scriptedTransport) count(cmd string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Params.Get("CMD") == cmd {
			n++
		}
	}
	return n
}

func ok(body string) *Response {
	return &Response{StatusCode: 200, Body: []byte(body)}
}

// countingWait records waits without sleeping.
type countingWait struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (w *countingWait) wait(ctx context.Context, d time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.delays = append(w.delays, d)
	return ctx.Err()
}

func (w *countingWait) calls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.delays)
}

const submitPage = `<!DOCTYPE html>
<html>
<!--QBlastInfoBegin
    RID = 8XN2Z5KZ016
    RTOE = 27
QBlastInfoEnd
-->
</html>`

const waitingPage = `<!--QBlastInfoBegin
	Status=WAITING
QBlastInfoEnd
-->`

const failedPage = `<!--QBlastInfoBegin
	Status=FAILED
QBlastInfoEnd
-->`

const readyDoc = `<?xml version="1.0"?>
<BlastOutput>
  <BlastOutput_program>blastn</BlastOutput_program>
  <BlastOutput_iterations>
    <Iteration>
      <Iteration_hits>
        <Hit>
          <Hit_def>Escherichia coli strain K-12 chromosome</Hit_def>
          <Hit_accession>CP000001</Hit_accession>
          <Hit_hsps>
            <Hsp>
              <Hsp_bit-score>92.5</Hsp_bit-score>
              <Hsp_evalue>1e-20</Hsp_evalue>
              <Hsp_identity>45</Hsp_identity>
              <Hsp_align-len>50</Hsp_align-len>
            </Hsp>
          </Hit_hsps>
        </Hit>
      </Iteration_hits>
    </Iteration>
  </BlastOutput_iterations>
</BlastOutput>`

func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}
