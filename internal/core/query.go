package core

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Endpoint is a path of the reporting API, relative to its base URL.
type Endpoint string

const (
	EndpointTransactions          Endpoint = "transactions"
	EndpointMonthlyReport         Endpoint = "monthly-report"
	EndpointExpenseSummary        Endpoint = "expense-summary"
	EndpointCategorisedExpenses   Endpoint = "categorised-expense-summary"
	EndpointCreditCards           Endpoint = "credit-card"
	EndpointCreditCardSummary     Endpoint = "credit-card/summary"
	EndpointCreditCardTrend       Endpoint = "credit-card/trend"
	EndpointSplitwiseTransactions Endpoint = "splitwise/transactions"
	EndpointSplitwiseFriends      Endpoint = "splitwise/friends"
)

var knownEndpoints = map[Endpoint]struct{}{
	EndpointTransactions:          {},
	EndpointMonthlyReport:         {},
	EndpointExpenseSummary:        {},
	EndpointCategorisedExpenses:   {},
	EndpointCreditCards:           {},
	EndpointCreditCardSummary:     {},
	EndpointCreditCardTrend:       {},
	EndpointSplitwiseTransactions: {},
	EndpointSplitwiseFriends:      {},
}

// Known reports whether e is an endpoint of the reporting API.
func (e Endpoint) Known() bool {
	_, ok := knownEndpoints[e]
	return ok
}

// Query is one request to the reporting API.
type Query struct {
	Endpoint Endpoint
	Params   url.Values
}

// Key is the canonical identity of a query: the endpoint followed by its
// parameters in sorted order. Caches and snapshots are keyed by it.
func (q Query) Key() string {
	if len(q.Params) == 0 {
		return string(q.Endpoint)
	}
	return string(q.Endpoint) + "?" + q.Params.Encode()
}

func (q Query) String() string { return q.Key() }

// ParseKey is the inverse of Key.
func ParseKey(key string) (Query, error) {
	path, rawQuery, _ := strings.Cut(key, "?")
	e := Endpoint(path)
	if !e.Known() {
		return Query{}, fmt.Errorf("unknown endpoint %q", path)
	}
	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		return Query{}, fmt.Errorf("query %q: %w", key, err)
	}
	if len(params) == 0 {
		params = nil
	}
	return Query{Endpoint: e, Params: params}, nil
}

func monthParams(p Period) url.Values {
	return url.Values{
		"month": {strconv.Itoa(p.Month)},
		"year":  {strconv.Itoa(p.Year)},
	}
}

func TransactionsQuery(p Period) Query {
	return Query{Endpoint: EndpointTransactions, Params: monthParams(p)}
}

// MonthlyReportQuery asks for the account summaries of a month as JSON.
func MonthlyReportQuery(p Period) Query {
	params := monthParams(p)
	params.Set("format", "json")
	return Query{Endpoint: EndpointMonthlyReport, Params: params}
}

func ExpenseSummaryQuery(p Period) Query {
	return Query{Endpoint: EndpointExpenseSummary, Params: monthParams(p)}
}

func CategorisedExpensesQuery(p Period) Query {
	return Query{Endpoint: EndpointCategorisedExpenses, Params: monthParams(p)}
}

func CreditCardsQuery() Query {
	return Query{Endpoint: EndpointCreditCards}
}

func CreditCardSummaryQuery(cardID int64, p Period) Query {
	params := monthParams(p)
	params.Set("credit_card_id", strconv.FormatInt(cardID, 10))
	return Query{Endpoint: EndpointCreditCardSummary, Params: params}
}

func CreditCardTrendQuery(cardID int64) Query {
	return Query{Endpoint: EndpointCreditCardTrend, Params: url.Values{
		"credit_card_id": {strconv.FormatInt(cardID, 10)},
	}}
}

func SplitwiseTransactionsQuery(f SplitwiseFilter) Query {
	return Query{Endpoint: EndpointSplitwiseTransactions, Params: url.Values{
		"person":     {f.Person},
		"start_date": {f.Start},
		"end_date":   {f.End},
	}}
}

func SplitwiseFriendsQuery() Query {
	return Query{Endpoint: EndpointSplitwiseFriends}
}

// MonthQueries lists every month-scoped query of p: what a dashboard
// month needs.
func MonthQueries(p Period) []Query {
	return []Query{
		TransactionsQuery(p),
		MonthlyReportQuery(p),
		ExpenseSummaryQuery(p),
		CategorisedExpensesQuery(p),
	}
}
