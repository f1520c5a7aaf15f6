// Parsing of the page-level parameters every dashboard URL carries and of
// the bodies of HTMX form posts.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finboard/internal/core"
	"finboard/internal/reports"
)

// Page parameter names.
const (
	paramMonth     = "month"
	paramYear      = "year"
	paramTab       = "tab"
	paramCardID    = "cc_id"
	paramPerson    = "person"
	paramStartDate = "start_date"
	paramEndDate   = "end_date"
)

var pageParamNames = []string{paramMonth, paramYear, paramTab, paramCardID, paramPerson, paramStartDate, paramEndDate}

var errInvalidCard = errors.New("invalid credit card id")

// PageParams are the inputs encoded in a dashboard URL outside any table
// state.
type PageParams struct {
	Period    core.Period
	Tab       string
	CardID    int64
	Splitwise core.SplitwiseFilter
}

// ParsePageParams reads page parameters from q. Blank month and year mean
// the current month in loc; blank splitwise dates mean the default window.
func ParsePageParams(q url.Values, now time.Time, loc *time.Location) (PageParams, error) {
	if loc == nil {
		loc = time.UTC
	}
	var p PageParams
	period, err := core.ParsePeriod(
		strings.TrimSpace(q.Get(paramMonth)),
		strings.TrimSpace(q.Get(paramYear)),
		core.PeriodOf(now.In(loc)))
	if err != nil {
		return PageParams{}, err
	}
	p.Period = period
	p.Tab = sanitizeInput(q.Get(paramTab))

	if v := strings.TrimSpace(q.Get(paramCardID)); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return PageParams{}, fmt.Errorf("%w: %q", errInvalidCard, v)
		}
		p.CardID = id
	}

	start, end := core.DefaultSplitwiseWindow(now, loc)
	p.Splitwise = core.SplitwiseFilter{
		Person: sanitizeInput(q.Get(paramPerson)),
		Start:  orDefault(strings.TrimSpace(q.Get(paramStartDate)), start),
		End:    orDefault(strings.TrimSpace(q.Get(paramEndDate)), end),
	}
	if err := p.Splitwise.Validate(); err != nil {
		return PageParams{}, err
	}
	return p, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Values encodes the parameters back into query form. Splitwise dates are
// only written alongside a person.
func (p PageParams) Values() url.Values {
	q := url.Values{}
	q.Set(paramMonth, strconv.Itoa(p.Period.Month))
	q.Set(paramYear, strconv.Itoa(p.Period.Year))
	if p.Tab != "" {
		q.Set(paramTab, p.Tab)
	}
	if p.CardID > 0 {
		q.Set(paramCardID, strconv.FormatInt(p.CardID, 10))
	}
	if p.Splitwise.Person != "" {
		q.Set(paramPerson, p.Splitwise.Person)
		q.Set(paramStartDate, p.Splitwise.Start)
		q.Set(paramEndDate, p.Splitwise.End)
	}
	return q
}

// Reports converts the page parameters into view parameters.
func (p PageParams) Reports() reports.Params {
	return reports.Params{Period: p.Period, CardID: p.CardID, Splitwise: p.Splitwise}
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// maxBodyBytes bounds form posts; the dashboard only posts short fields.
const maxBodyBytes = 64 << 10

// NewRequestBodyParser reads the body once and keeps it for parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a sanitized value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if !p.parsed {
		_ = p.Parse()
	}
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
