package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"finboard/internal/core"
)

var testNow = time.Date(2024, 6, 20, 22, 0, 0, 0, time.UTC)

func TestParsePageParams(t *testing.T) {
	kolkata := core.LoadLocation(core.DefaultTimezone)

	tests := []struct {
		name       string
		query      url.Values
		wantPeriod core.Period
		wantCard   int64
		wantStart  string
		wantErr    bool
	}{
		{
			name:       "defaults to the current month in the zone",
			query:      url.Values{},
			wantPeriod: core.Period{Year: 2024, Month: 6},
			wantStart:  "2024-03-01",
		},
		{
			name:       "explicit month and year",
			query:      url.Values{"month": {"12"}, "year": {"2023"}},
			wantPeriod: core.Period{Year: 2023, Month: 12},
			wantStart:  "2024-03-01",
		},
		{
			name:       "card id",
			query:      url.Values{"cc_id": {"7"}},
			wantPeriod: core.Period{Year: 2024, Month: 6},
			wantCard:   7,
			wantStart:  "2024-03-01",
		},
		{
			name:       "explicit splitwise window",
			query:      url.Values{"person": {"Asha"}, "start_date": {"2024-01-01"}, "end_date": {"2024-02-01"}},
			wantPeriod: core.Period{Year: 2024, Month: 6},
			wantStart:  "2024-01-01",
		},
		{name: "bad month", query: url.Values{"month": {"13"}}, wantErr: true},
		{name: "non-numeric year", query: url.Values{"year": {"soon"}}, wantErr: true},
		{name: "bad card", query: url.Values{"cc_id": {"-1"}}, wantErr: true},
		{name: "reversed window", query: url.Values{"start_date": {"2024-05-01"}, "end_date": {"2024-04-01"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePageParams(tt.query, testNow, kolkata)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePageParams error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Period != tt.wantPeriod {
				t.Errorf("Period = %v, want %v", got.Period, tt.wantPeriod)
			}
			if got.CardID != tt.wantCard {
				t.Errorf("CardID = %d, want %d", got.CardID, tt.wantCard)
			}
			if got.Splitwise.Start != tt.wantStart {
				t.Errorf("Start = %q, want %q", got.Splitwise.Start, tt.wantStart)
			}
		})
	}
}

func TestParsePageParams_BadCardIsTyped(t *testing.T) {
	_, err := ParsePageParams(url.Values{"cc_id": {"abc"}}, testNow, time.UTC)
	if !errors.Is(err, errInvalidCard) {
		t.Errorf("error = %v, want errInvalidCard", err)
	}
}

func TestPageParamsValues(t *testing.T) {
	p := PageParams{Period: core.Period{Year: 2024, Month: 3}, CardID: 4}
	if got := p.Values().Encode(); got != "cc_id=4&month=3&year=2024" {
		t.Errorf("Values = %q", got)
	}

	p.Splitwise = core.SplitwiseFilter{Person: "Ravi", Start: "2024-01-01", End: "2024-03-31"}
	q := p.Values()
	if q.Get("person") != "Ravi" || q.Get("end_date") != "2024-03-31" {
		t.Errorf("Values = %v", q)
	}
}

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"tab": "March report", "rows": 42.5}`
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !parser.IsJSON() {
		t.Error("Expected IsJSON() to be true")
	}
	if tab := parser.Get("tab"); tab != "March report" {
		t.Errorf("Get('tab') = %q", tab)
	}
	if rows := parser.Get("rows"); rows != "42.5" {
		t.Errorf("Get('rows') = %q, want '42.5'", rows)
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	body := "tab=Card+HDFC%0A&other=1"
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parser.IsJSON() {
		t.Error("Expected IsJSON() to be false for form data")
	}
	if tab := parser.Get("tab"); tab != "Card HDFC" {
		t.Errorf("Get('tab') = %q, want 'Card HDFC'", tab)
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(""))

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if val := parser.Get("nonexistent"); val != "" {
		t.Errorf("Get('nonexistent') = %q, want empty string", val)
	}
}
