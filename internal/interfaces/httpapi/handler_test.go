package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/shopspring/decimal"

	"github.com/riskibarqy/kqsx/internal/domain/lottery"
	"github.com/riskibarqy/kqsx/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/kqsx/internal/usecase"
)

type envelope[T any] struct {
	APIVersion string `json:"apiVersion"`
	Data       T      `json:"data"`
	Error      *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Errors  []struct {
			Reason       string `json:"reason"`
			Message      string `json:"message"`
			Location     string `json:"location"`
			LocationType string `json:"locationType"`
		} `json:"errors"`
	} `json:"error"`
}

func southDraw(date time.Time) lottery.Draw {
	province := lottery.Province{Code: "tp_hcm", Name: "TP. Ho Chi Minh", Operator: "XSKT TP.HCM", Region: lottery.RegionSouth}
	prize := func(level lottery.PrizeLevel, numbers ...string) lottery.Prize {
		return lottery.Prize{
			Level:          level,
			Order:          1,
			Name:           level.Name(),
			RewardAmount:   decimal.Zero,
			RewardCurrency: lottery.DefaultCurrency,
			Results:        []lottery.Result{{ProvinceCode: province.Code, Numbers: numbers}},
		}
	}
	return lottery.Draw{
		Game:      lottery.RegionalGame(lottery.RegionSouth),
		Date:      date,
		Sequence:  lottery.DefaultSequence,
		Status:    lottery.DrawStatusCompleted,
		Provinces: []lottery.Province{province},
		Prizes: []lottery.Prize{
			prize(lottery.PrizeEighth, "45"),
			prize(lottery.PrizeSpecial, "123456"),
		},
	}
}

func newTestRouter(t *testing.T) (http.Handler, *Handler) {
	t.Helper()

	repo := memory.NewLotteryRepository(nil)
	date, _ := lottery.ParseDate("2024-10-03")
	if _, err := repo.UpsertDraw(context.Background(), southDraw(date), lottery.WriteMeta{Actor: lottery.ActorRangeRunner}); err != nil {
		t.Fatalf("seed draw: %v", err)
	}

	summary := usecase.NewSummaryService(repo, nil, nil, usecase.SummaryConfig{LookbackDays: 1}, time.UTC, nil)
	ticket := usecase.NewTicketService(repo)
	frequency := usecase.NewFrequencyService(repo, usecase.FrequencyConfig{}, time.UTC, nil)
	handler := NewHandler(summary, ticket, frequency, nil, time.UTC, nil)
	handler.now = func() time.Time { return time.Date(2024, 10, 3, 12, 0, 0, 0, time.UTC) }
	return NewRouter(handler, nil, false, []string{"*"}), handler
}

func serve(t *testing.T, router http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var out envelope[T]
	if err := sonic.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}
	return out
}

func TestHandler_Summary(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := serve(t, router, "/v1/kqsx/summary?date=2024-10-04&region=mn")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode[usecase.Summary](t, rec)
	if !body.Data.Available || !body.Data.Fallback || body.Data.FallbackOffsetDays != 1 {
		t.Fatalf("unexpected fallback fields: %+v", body.Data)
	}
	if body.Data.Date != "2024-10-03" || len(body.Data.Draws) != 1 {
		t.Fatalf("unexpected summary: date=%s draws=%d", body.Data.Date, len(body.Data.Draws))
	}
	if body.Data.Draws[0].GameCode != "xs_mn_tp_hcm" {
		t.Fatalf("unexpected game code: %s", body.Data.Draws[0].GameCode)
	}
}

func TestHandler_SummaryWithoutData(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := serve(t, router, "/v1/kqsx/summary?date=2024-12-01&region=mb")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := decode[usecase.Summary](t, rec)
	if body.Data.Available {
		t.Fatalf("expected available=false")
	}
	want := "🎯 Chưa có dữ liệu kết quả xổ số Miền Bắc cho ngày 01/12/2024."
	if body.Data.SummaryText != want {
		t.Fatalf("unexpected summary text: %q", body.Data.SummaryText)
	}
}

func TestHandler_CheckTicket(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := serve(t, router, "/v1/kqsx/check?date=2024-10-03&region=mn&province=tp_hcm&number=123456")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode[usecase.TicketCheckResult](t, rec)
	if !body.Data.Winner || len(body.Data.Wins) != 1 || body.Data.Wins[0].Level != string(lottery.PrizeSpecial) {
		t.Fatalf("unexpected wins: %+v", body.Data.Wins)
	}
}

func TestHandler_ErrorMapping(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name   string
		target string
		code   int
		status string
	}{
		{name: "bad region", target: "/v1/kqsx/summary?region=north", code: http.StatusBadRequest, status: "INVALID_ARGUMENT"},
		{name: "bad date", target: "/v1/kqsx/summary?date=03-10-2024", code: http.StatusBadRequest, status: "INVALID_ARGUMENT"},
		{name: "ticket missing number", target: "/v1/kqsx/check?date=2024-10-03&region=mn&province=tp_hcm", code: http.StatusBadRequest, status: "INVALID_ARGUMENT"},
		{name: "ticket province not drawn", target: "/v1/kqsx/check?date=2024-10-03&region=mn&province=ca_mau&number=123456", code: http.StatusNotFound, status: "NOT_FOUND"},
		{name: "frequency limit", target: "/v1/kqsx/frequency?region=mn&limit=500", code: http.StatusBadRequest, status: "INVALID_ARGUMENT"},
		{name: "random not integer", target: "/v1/random_numbers?count=abc", code: http.StatusBadRequest, status: "INVALID_ARGUMENT"},
		{name: "random span too small", target: "/v1/random_numbers?min_value=1&max_value=3&count=5&unique=true", code: http.StatusUnprocessableEntity, status: "FAILED_PRECONDITION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, router, tt.target)
			if rec.Code != tt.code {
				t.Fatalf("expected status %d, got %d: %s", tt.code, rec.Code, rec.Body.String())
			}
			body := decode[any](t, rec)
			if body.Error == nil || body.Error.Status != tt.status {
				t.Fatalf("unexpected error body: %s", rec.Body.String())
			}
		})
	}
}

func TestHandler_RandomNumbers(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := serve(t, router, "/v1/random_numbers?min_value=10&max_value=12&count=3&unique=true")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := decode[usecase.RandomResult](t, rec)
	seen := map[int]bool{}
	for _, n := range body.Data.Numbers {
		if n < 10 || n > 12 || seen[n] {
			t.Fatalf("unexpected numbers: %v", body.Data.Numbers)
		}
		seen[n] = true
	}
	if len(seen) != 3 {
		t.Fatalf("expected 3 unique numbers, got %v", body.Data.Numbers)
	}
}

func TestHandler_FrequencyEmpty(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := serve(t, router, "/v1/kqsx/frequency?region=mn")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode[[]usecase.FrequencyEntry](t, rec)
	if len(body.Data) != 0 {
		t.Fatalf("expected no tails before a rebuild, got %d", len(body.Data))
	}
}

func TestHandler_PrivacyPolicyAndHealth(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := serve(t, router, "/privacy_policy")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := decode[usecase.PrivacyPolicy](t, rec)
	if body.Data.LastUpdated != "2024-10-03" {
		t.Fatalf("unexpected last_updated: %s", body.Data.LastUpdated)
	}

	if rec := serve(t, router, "/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("expected healthz 200, got %d", rec.Code)
	}
	if rec := serve(t, router, "/openapi.yaml"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected docs to be disabled, got %d", rec.Code)
	}
}

func TestHandler_InvalidParametersAreListed(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := serve(t, router, "/v1/kqsx/check?date=2024-10-03&region=north")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	body := decode[any](t, rec)
	got := map[string]string{}
	for _, item := range body.Error.Errors {
		if item.LocationType != "parameter" {
			t.Fatalf("expected parameter location type, got %+v", item)
		}
		got[item.Location] = item.Message
	}
	want := map[string]string{
		"region":   "region must be one of mn, mt, mb",
		"province": "province is required",
		"number":   "number is required",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d parameter errors, got %v", len(want), got)
	}
	for name, msg := range want {
		if got[name] != msg {
			t.Fatalf("parameter %s: expected %q, got %q", name, msg, got[name])
		}
	}

	rec = serve(t, router, "/v1/random_numbers?count=abc")
	body = decode[any](t, rec)
	if len(body.Error.Errors) != 1 || body.Error.Errors[0].Location != "count" {
		t.Fatalf("expected a count parameter error, got %s", rec.Body.String())
	}
}

func TestHandler_UnknownRouteUsesEnvelope(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := serve(t, router, "/v1/kqsx/unknown")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
	body := decode[any](t, rec)
	if body.Error == nil || body.Error.Status != "NOT_FOUND" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandler_CacheControl(t *testing.T) {
	router, handler := newTestRouter(t)
	handler.now = func() time.Time { return time.Date(2024, 10, 5, 9, 0, 0, 0, time.UTC) }

	tests := []struct {
		name   string
		target string
		want   string
	}{
		{name: "finished day", target: "/v1/kqsx/summary?date=2024-10-03&region=mn", want: "public, max-age=3600"},
		{name: "no data yet", target: "/v1/kqsx/summary?date=2024-10-05&region=mb", want: "no-store"},
		{name: "ticket for finished day", target: "/v1/kqsx/check?date=2024-10-03&region=mn&province=tp_hcm&number=999999", want: "public, max-age=3600"},
		{name: "random numbers", target: "/v1/random_numbers", want: "no-store"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, router, tt.target)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
			}
			if got := rec.Header().Get("Cache-Control"); got != tt.want {
				t.Fatalf("expected Cache-Control %q, got %q", tt.want, got)
			}
		})
	}
}

func TestHandler_SwaggerEnabled(t *testing.T) {
	_, handler := newTestRouter(t)
	router := NewRouter(handler, nil, true, []string{"*"})

	rec := serve(t, router, "/openapi.yaml")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/v1/kqsx/summary") {
		t.Fatalf("expected the summary route in the document")
	}

	rec = serve(t, router, "/docs")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "swagger-ui") {
		t.Fatalf("unexpected docs page: %d", rec.Code)
	}
}

func TestClientInfoFrom(t *testing.T) {
	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    clientInfo
	}{
		{
			name:    "forwarded chain",
			remote:  "10.0.0.1:5555",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2", "CF-IPCountry": "vn"},
			want:    clientInfo{IP: "203.0.113.7", Country: "VN"},
		},
		{
			name:    "proxy header wins",
			remote:  "10.0.0.1:5555",
			headers: map[string]string{"Fly-Client-IP": "198.51.100.4", "X-Real-IP": "192.0.2.1"},
			want:    clientInfo{IP: "198.51.100.4", Country: "ZZ"},
		},
		{
			name:    "socket address",
			remote:  "[2001:db8::1]:443",
			headers: map[string]string{"CF-IPCountry": "XX1"},
			want:    clientInfo{IP: "2001:db8::1", Country: "ZZ"},
		},
		{
			name:    "garbage header falls through",
			remote:  "192.0.2.9:80",
			headers: map[string]string{"X-Forwarded-For": "unknown", "CloudFront-Viewer-Country": "jp"},
			want:    clientInfo{IP: "192.0.2.9", Country: "JP"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := clientInfoFrom(req); got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}
