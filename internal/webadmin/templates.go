// ABOUTME: Template rendering functions for admin UI
// ABOUTME: Loads templates from embedded filesystem and renders them

package webadmin

import (
	"html/template"
	"net/http"
	"time"

	"github.com/2389/storeadmin/internal/resource"
	"github.com/2389/storeadmin/internal/store"
)

var templateFuncs = template.FuncMap{
	"date": func(t time.Time) string {
		return t.Local().Format("January 2, 2006")
	},
	"datetime": func(t time.Time) string {
		return t.Local().Format("Jan 2, 2006 15:04")
	},
}

// pageData is shared by every full page.
type pageData struct {
	Title     string
	User      *store.User
	CSRFToken string
	Notice    *notice
	Store     *resource.Record
	Stores    []*resource.Record
	Nav       []*resource.Schema
}

type loginData struct {
	Title     string
	Error     string
	CSRFToken string
}

type setupData struct {
	pageData
	Setup setupState
	Form  formView
}

type entityCount struct {
	Schema *resource.Schema
	Count  int
}

type dashboardData struct {
	pageData
	Counts   []entityCount
	Activity []*store.AuditEntry
}

type listData struct {
	pageData
	Schema  *resource.Schema
	Columns []string
	Rows    []listRow
}

type formData struct {
	pageData
	Schema    *resource.Schema
	Record    *resource.Record
	Heading   string
	Action    string
	CancelURL string
	DeleteURL string
	Parent    *resource.Record
	Form      formView
	Children  []listRow
	ChildNew  string
}

type confirmData struct {
	pageData
	Modal     ModalPhase
	Heading   string
	Label     string
	Action    string
	CancelURL string
}

func (a *Admin) render(w http.ResponseWriter, page string, data any) {
	tmpl := template.Must(template.New("base.html").Funcs(templateFuncs).
		ParseFS(templateFS, "templates/base.html", "templates/"+page+".html"))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		a.logger.Error("failed to render page", "page", page, "error", err)
	}
}

// renderLoginPage renders the login page
func (a *Admin) renderLoginPage(w http.ResponseWriter, errorMsg, csrfToken string) {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/login.html"))

	data := loginData{
		Title:     "Login",
		Error:     errorMsg,
		CSRFToken: csrfToken,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		a.logger.Error("failed to render login page", "error", err)
	}
}

// page builds the shared layout data and consumes any pending notification.
func (a *Admin) page(w http.ResponseWriter, r *http.Request, shop *resource.Record, title, csrfToken string) pageData {
	user := getUserFromContext(r)
	stores, err := a.svc.List(r.Context(), resource.Stores, user.ID, resource.Query{})
	if err != nil {
		a.logger.Error("failed to list stores", "user", user.ID, "error", err)
	}
	var nav []*resource.Schema
	for _, s := range a.svc.Registry().All() {
		if s.Scope == resource.ScopeStore {
			nav = append(nav, s)
		}
	}
	return pageData{
		Title:     title,
		User:      user,
		CSRFToken: csrfToken,
		Notice:    a.takeNotice(w, r),
		Store:     shop,
		Stores:    stores,
		Nav:       nav,
	}
}

func (a *Admin) renderSetup(w http.ResponseWriter, r *http.Request, user *store.User, setup setupState, form formView, csrfToken string) {
	a.render(w, "setup", setupData{
		pageData: pageData{Title: "Create store", User: user, CSRFToken: csrfToken, Notice: a.takeNotice(w, r)},
		Setup:    setup,
		Form:     form,
	})
}

func (a *Admin) renderDashboard(w http.ResponseWriter, r *http.Request, shop *resource.Record, counts []entityCount, activity []*store.AuditEntry, csrfToken string) {
	a.render(w, "dashboard", dashboardData{
		pageData: a.page(w, r, shop, "Dashboard", csrfToken),
		Counts:   counts,
		Activity: activity,
	})
}
