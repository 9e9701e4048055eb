package web

import "github.com/brmorais/cadastrohub/internal/domain/model"

// LoginView is the view model for the login page.
type LoginView struct {
	CSRFToken string
	Error     string
}

// FormView carries a registration form plus any validation feedback, so a
// rejected submission re-renders with the operator's input intact.
type FormView struct {
	Values map[string]string
	Error  string
	Field  string
	Saved  bool
}

// TableView is the rendered spreadsheet table for one record kind.
type TableView struct {
	Kind     string
	Headers  []string
	Rows     [][]string
	Degraded bool
	Empty    bool
}

// EditView is the view model for the record edit form. One input per column,
// in header order.
type EditView struct {
	CSRFToken string
	Kind      string
	Index     int
	Headers   []string
	Values    []string
	Error     string
	Saved     bool
}

// DashboardView is the view model for the tabbed dashboard page.
type DashboardView struct {
	CSRFToken string
	Username  string
	ActiveTab string
	MEIForm   FormView
	PFForm    FormView
	MEITable  TableView
	PFTable   TableView
	States    []string
	Statuses  []string
}

func newTableView(kind string, table model.Table, degraded bool) TableView {
	rows := make([][]string, 0, len(table.Records))
	for _, rec := range table.Records {
		rows = append(rows, []string(rec))
	}
	return TableView{
		Kind:     kind,
		Headers:  table.Headers,
		Rows:     rows,
		Degraded: degraded,
		Empty:    len(rows) == 0,
	}
}
