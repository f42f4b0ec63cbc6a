package ollama

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/kqsx/internal/domain/lottery"
	"github.com/riskibarqy/kqsx/internal/domain/source"
)

type stubPages struct {
	body []byte
	err  error
}

func (s stubPages) Page(context.Context, time.Time) ([]byte, string, error) {
	return s.body, "https://example.test/ket-qua-xo-so/01-10-2024.html", s.err
}

const samplePage = `<html><body><div class="box_kqxs"><div class="title">Miền Nam</div><table><tr><td>Bến Tre</td></tr></table></div></body></html>`

func TestExtractor_Fetch_RetriesWithStricterPrompt(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Format != "json" || req.Stream {
			t.Errorf("unexpected request options: %+v", req)
		}
		n := calls.Add(1)
		resp := generateResponse{Done: true, Response: "Here are the results"}
		if n == 2 {
			if !strings.Contains(req.Prompt, "Return ONLY a valid JSON array") {
				t.Errorf("expected stricter prompt on retry")
			}
			resp.Response = `{"result":[{"name":"Ben Tre","results":[]}]}`
		}
		raw, _ := sonic.Marshal(resp)
		_, _ = w.Write(raw)
	}))
	defer srv.Close()

	ex := NewExtractor(ClientConfig{Host: srv.URL, Timeout: time.Second}, stubPages{body: []byte(samplePage)})
	res := ex.Fetch(context.Background(), lottery.RegionSouth, time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC))
	if res.Outcome != source.OutcomeFound {
		t.Fatalf("expected found, got=%s err=%v", res.Outcome, res.Err)
	}
	if res.Attempts != 2 || calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got=%d calls=%d", res.Attempts, calls.Load())
	}
	if res.Payload.Kind != source.KindFreeText || !strings.Contains(res.Payload.Text, "Ben Tre") {
		t.Fatalf("unexpected payload: %+v", res.Payload)
	}
}

func TestExtractor_Fetch_PageNotAvailable(t *testing.T) {
	t.Parallel()

	ex := NewExtractor(ClientConfig{Host: "localhost:1"}, stubPages{err: crerr.Wrap(lottery.ErrNotAvailable, "404")})
	res := ex.Fetch(context.Background(), lottery.RegionNorth, time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC))
	if res.Outcome != source.OutcomeNotAvailable {
		t.Fatalf("expected not_available, got=%s", res.Outcome)
	}
}

func TestExtractor_Fetch_ServerErrorIsRetryable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ex := NewExtractor(ClientConfig{Host: srv.URL, Timeout: time.Second}, stubPages{body: []byte(samplePage)})
	res := ex.Fetch(context.Background(), lottery.RegionSouth, time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC))
	if res.Outcome != source.OutcomeRetryable {
		t.Fatalf("expected retryable, got=%s err=%v", res.Outcome, res.Err)
	}
}
