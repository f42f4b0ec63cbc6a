package ollama

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/riskibarqy/kqsx/internal/domain/lottery"
	"github.com/riskibarqy/kqsx/internal/domain/rawdata"
	"github.com/riskibarqy/kqsx/internal/domain/source"
	"github.com/riskibarqy/kqsx/internal/platform/logging"
	"github.com/riskibarqy/kqsx/internal/platform/resilience"
)

const (
	SourceName      = "ollama"
	defaultHost     = "http://localhost:11434"
	defaultModel    = "llama3"
	maxPromptRunes  = 12000
	maxResponseSize = 2 << 20
)

// PageSource provides the raw results page the extractor reads from.
type PageSource interface {
	Page(ctx context.Context, date time.Time) (body []byte, pageURL string, err error)
}

type ClientConfig struct {
	HTTPClient     *http.Client
	Host           string
	Model          string
	Timeout        time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Extractor asks a local LLM to turn the results page into a JSON list of
// boards. It is a fallback for pages the structured parser cannot read.
type Extractor struct {
	httpClient *http.Client
	host       string
	model      string
	pages      PageSource
	logger     *logging.Logger
	breaker    *resilience.CircuitBreaker
}

var _ source.Fetcher = (*Extractor)(nil)

func NewExtractor(cfg ClientConfig, pages PageSource) *Extractor {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 120 * time.Second
	}
	host := strings.TrimRight(strings.TrimSpace(cfg.Host), "/")
	if host == "" {
		host = defaultHost
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	return &Extractor{
		httpClient: httpClient,
		host:       host,
		model:      model,
		pages:      pages,
		logger:     logger.With("source", SourceName),
		breaker:    resilience.NewCircuitBreakerFromConfig(cfg.CircuitBreaker),
	}
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Format  string          `json:"format"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

func (e *Extractor) Fetch(ctx context.Context, region lottery.RegionCode, date time.Time) source.FetchResult {
	if !region.Valid() {
		return source.Fatal(crerr.Newf("unknown region %q", region), 0)
	}
	body, pageURL, err := e.pages.Page(ctx, date)
	if err != nil {
		switch {
		case crerr.Is(err, lottery.ErrNotAvailable):
			return source.NotAvailable(err, 1)
		case crerr.Is(err, lottery.ErrFetch):
			return source.Retryable(err, 1)
		default:
			return source.Fatal(err, 1)
		}
	}

	text, err := pageText(body)
	if err != nil {
		return source.Fatal(err, 1)
	}
	prompt := buildPrompt(region, lottery.FormatDate(date), pageURL, text)

	attempts := 0
	out, err := e.generate(ctx, prompt)
	attempts++
	if err == nil && !sonic.ValidString(out) {
		e.logger.WarnContext(ctx, "extractor output is not JSON, retrying with stricter prompt", "region", region)
		out, err = e.generate(ctx, prompt+strictSuffix)
		attempts++
	}
	if err != nil {
		if crerr.Is(err, lottery.ErrFetch) {
			return source.Retryable(err, attempts)
		}
		return source.Fatal(err, attempts)
	}

	return source.Found(&source.RawPayload{
		Kind:      source.KindFreeText,
		Source:    SourceName,
		Region:    region,
		Date:      lottery.DateOf(date),
		SourceURL: pageURL,
		Text:      out,
		Ref:       rawdata.Ref(SourceName, []byte(out)),
		Body:      []byte(out),
	}, attempts)
}

func (e *Extractor) generate(ctx context.Context, prompt string) (string, error) {
	if err := e.breaker.Allow(); err != nil {
		return "", crerr.Wrap(lottery.ErrFetch, "extractor is temporarily unavailable")
	}

	payload, err := sonic.Marshal(generateRequest{
		Model:   e.model,
		Prompt:  prompt,
		Format:  "json",
		Options: generateOptions{Temperature: 0, NumPredict: 4096},
	})
	if err != nil {
		return "", crerr.Wrap(err, "encode generate request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", crerr.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		e.breaker.RecordFailure()
		return "", crerr.Wrapf(lottery.ErrFetch, "send generate request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		e.breaker.RecordFailure()
		return "", crerr.Wrapf(lottery.ErrFetch, "read generate response: %v", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		e.breaker.RecordFailure()
		return "", crerr.Wrapf(lottery.ErrFetch, "extractor status=%d", resp.StatusCode)
	}
	e.breaker.RecordSuccess()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", crerr.Newf("extractor status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out generateResponse
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return "", crerr.Wrap(err, "decode generate response")
	}
	if out.Error != "" {
		return "", crerr.Newf("extractor error: %s", out.Error)
	}
	return strings.TrimSpace(out.Response), nil
}

// pageText keeps only the results boxes so the prompt stays small.
func pageText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", lottery.NewParseError("page", "read html: %v", err)
	}
	var b strings.Builder
	boxes := doc.Find("div.box_kqxs")
	if boxes.Length() == 0 {
		boxes = doc.Find("body")
	}
	boxes.Each(func(_ int, s *goquery.Selection) {
		b.WriteString(strings.Join(strings.Fields(s.Text()), " "))
		b.WriteString("\n")
	})
	text := []rune(b.String())
	if len(text) > maxPromptRunes {
		text = text[:maxPromptRunes]
	}
	return string(text), nil
}

const strictSuffix = "\n\nReturn ONLY a valid JSON array. Do not include commentary or explanations."

func buildPrompt(region lottery.RegionCode, date, pageURL, text string) string {
	info := region.Info()
	return fmt.Sprintf(`You are a precise data extractor for Vietnamese lottery results.
From the results page text below, extract ALL results for the requested REGION ONLY.
Return a strict JSON array (no commentary) where each item has:
- code: machine slug of the province, e.g. "ben_tre"
- name: province display name, e.g. "Ben Tre"
- operator: "XSKT <Province>"
- draw_date: ISO date YYYY-MM-DD
- sequence: 1
- results: array of objects with prize_level in [%s], prize_order 1, prize_name, and numbers
  as an array of strings preserving leading zeros.

Requested region: %s (%s)
Page URL: %s
Target date (draw_date): %s

Page text:
%s`, quotedLevels(region), region, info.Name, pageURL, date, text)
}

func quotedLevels(region lottery.RegionCode) string {
	levels := region.PrizeOrder()
	parts := make([]string, 0, len(levels))
	for _, l := range levels {
		parts = append(parts, `"`+string(l)+`"`)
	}
	return strings.Join(parts, ",")
}
