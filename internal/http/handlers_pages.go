package http

import (
	"context"
	"net/http"
	"net/url"

	"finboard/internal/core"
	"finboard/internal/grid"
	applog "finboard/internal/log"
	"finboard/internal/reports"
)

// Page tabs.
const (
	tabReports      = "reports"
	tabTransactions = "transactions"
	tabSummary      = "summary"
)

type (
	pageModel struct {
		Title  string
		Path   string
		Page   PageParams
		Tab    string
		Tabs   []tabLink
		Months []core.Month
		Years  []int
		Prev   string
		Next   string
		Slots  []slotModel
		Cards  []core.InfoCard
		Error  string

		Downloads []exportLink

		CreditCards []cardOption
		CardLabel   string
		Friends     []core.Friend
	}

	tabLink struct {
		Name   string
		Label  string
		URL    string
		Active bool
	}

	// slotModel is a placeholder the page fills by loading a table partial.
	slotModel struct {
		ID    string
		Title string
		URL   string
	}

	cardOption struct {
		ID       int64
		Label    string
		Selected bool
	}
)

// pageParams parses the page URL. Pages never fail on bad input: they log
// it and fall back to the defaults.
func (s *Server) pageParams(r *http.Request) PageParams {
	page, err := s.parsePage(r)
	if err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Invalid page parameters",
			applog.FieldPath, r.URL.Path,
			applog.FieldError, err)
		page, _ = ParsePageParams(url.Values{}, s.now(), s.loc)
	}
	return page
}

func (s *Server) newPage(title, path string, page PageParams) pageModel {
	prev, next := page, page
	prev.Period, next.Period = page.Period.Prev(), page.Period.Next()
	return pageModel{
		Title:  title,
		Path:   path,
		Page:   page,
		Tab:    page.Tab,
		Months: core.Months(),
		Years:  core.Years(s.today(), 5),
		Prev:   withQuery(path, prev.Values()),
		Next:   withQuery(path, next.Values()),
	}
}

func (s *Server) tabs(path string, page PageParams, active string, names ...string) []tabLink {
	out := make([]tabLink, 0, len(names)/2)
	for i := 0; i+1 < len(names); i += 2 {
		p := page
		p.Tab = names[i]
		out = append(out, tabLink{Name: names[i], Label: names[i+1], URL: withQuery(path, p.Values()), Active: names[i] == active})
	}
	return out
}

// slot points a placeholder at a view's table, restoring the table state
// from the page URL.
func (s *Server) slot(r *http.Request, name string, page PageParams) slotModel {
	view, ok := s.catalog.Lookup(name)
	if !ok {
		return slotModel{}
	}
	state := grid.DecodeState(r.URL.Query(), view.Prefix)
	return slotModel{
		ID:    "tbl-" + view.Name,
		Title: view.Title,
		URL:   withQuery("/ui/table/"+view.Name, tableQuery(view, page, state)),
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	page := s.pageParams(r)
	if page.Tab != tabTransactions {
		page.Tab = tabReports
	}
	m := s.newPage("Monthly Report", pathDashboard, page)
	m.Tabs = s.tabs(pathDashboard, page, page.Tab, tabReports, "Reports", tabTransactions, "Transactions")

	if page.Tab == tabTransactions {
		m.Slots = []slotModel{s.slot(r, reports.ViewTransactions, page)}
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), loadTimeout)
		defer cancel()
		overview, err := s.reports.MonthOverview(ctx, page.Period)
		if err != nil {
			applog.FromContext(ctx).WarnContext(ctx, "Month overview failed",
				applog.FieldYear, page.Period.Year,
				applog.FieldMonth, page.Period.Month,
				applog.FieldError, err)
			m.Error = "Could not load the report for " + page.Period.String() + "."
		} else {
			total := overview.Categorised.GrandTotal
			m.Cards = []core.InfoCard{
				{Label: "Total Debit", Amount: total.Debit},
				{Label: "Total Credit", Amount: total.Credit},
				{Label: "Net", Amount: total.Net()},
			}
		}
		m.Slots = []slotModel{
			s.slot(r, reports.ViewAccounts, page),
			s.slot(r, reports.ViewExpenses, page),
			s.slot(r, reports.ViewPivot, page),
		}
		m.Downloads = []exportLink{
			{Label: "Accounts (Excel)", URL: withQuery("/export/"+reports.ViewAccounts+".xlsx", page.Values())},
			{Label: "Categories (Excel)", URL: withQuery("/export/"+reports.ViewPivot+".xlsx", page.Values())},
		}
	}
	s.renderHTML(w, r, newReply(), "index.html", m)
}

func (s *Server) handleCreditCard(w http.ResponseWriter, r *http.Request) {
	page := s.pageParams(r)
	if page.Tab != tabTransactions {
		page.Tab = tabSummary
	}
	m := s.newPage("Credit Cards", pathCreditCard, page)
	m.Tabs = s.tabs(pathCreditCard, page, page.Tab, tabSummary, "Summary", tabTransactions, "Transactions")

	ctx, cancel := context.WithTimeout(r.Context(), loadTimeout)
	defer cancel()

	cards, err := s.reports.CreditCards(ctx)
	if err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Credit card list failed", applog.FieldError, err)
		m.Error = "Could not load credit cards."
	}
	for _, c := range cards {
		selected := c.ID == page.CardID
		if selected {
			m.CardLabel = c.Label()
		}
		m.CreditCards = append(m.CreditCards, cardOption{ID: c.ID, Label: c.Label(), Selected: selected})
	}

	if page.CardID > 0 && m.Error == "" {
		if page.Tab == tabTransactions {
			m.Slots = []slotModel{s.slot(r, reports.ViewCardTransactions, page)}
		} else {
			summary, err := s.reports.CreditCardSummary(ctx, page.CardID, page.Period)
			if err != nil {
				applog.FromContext(ctx).WarnContext(ctx, "Credit card summary failed", applog.FieldError, err)
				m.Error = "Could not load the statement for " + page.Period.String() + "."
			} else {
				m.Cards = summary.InfoCards()
			}
			m.Slots = []slotModel{
				s.slot(r, reports.ViewCardCategories, page),
				s.slot(r, reports.ViewCardTrend, page),
			}
		}
	}
	s.renderHTML(w, r, newReply(), "credit_card.html", m)
}

func (s *Server) handleSplitwise(w http.ResponseWriter, r *http.Request) {
	page := s.pageParams(r)
	page.Tab = ""
	m := s.newPage("Splitwise", pathSplitwise, page)

	ctx, cancel := context.WithTimeout(r.Context(), loadTimeout)
	defer cancel()

	friends, err := s.reports.Friends(ctx)
	if err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Friend list failed", applog.FieldError, err)
		m.Error = "Could not load friends."
	}
	m.Friends = friends
	m.Slots = []slotModel{s.slot(r, reports.ViewSplitwise, page)}
	s.renderHTML(w, r, newReply(), "splitwise.html", m)
}
