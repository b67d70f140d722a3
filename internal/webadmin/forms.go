// ABOUTME: Generic list, create, edit and delete pages driven by resource schemas
// ABOUTME: Form-mode validation with per-field messages; notifications on every outcome

package webadmin

import (
	"context"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/2389/storeadmin/internal/resource"
)

// fieldView is one rendered form input.
type fieldView struct {
	Name    string
	Label   string
	Input   string // text, textarea, checkbox, select, images
	Value   string
	Checked bool
	Error   string
	Options []option
}

type option struct {
	ID       string
	Label    string
	Selected bool
}

type formView struct {
	Fields []fieldView
}

// HasErrors reports whether any field carries a message.
func (f formView) HasErrors() bool {
	for _, fv := range f.Fields {
		if fv.Error != "" {
			return true
		}
	}
	return false
}

func newFormView(s *resource.Schema, in resource.Input, errs map[string]string, options map[string][]option) formView {
	var view formView
	for _, f := range s.FormFields() {
		fv := fieldView{
			Name:  f.Name,
			Label: f.Label,
			Value: in.Text(f),
			Error: errs[f.Name],
		}
		switch f.Kind {
		case resource.KindText:
			fv.Input = "textarea"
		case resource.KindBool:
			fv.Input = "checkbox"
			fv.Checked = in.Checked(f.Name)
		case resource.KindRef:
			fv.Input = "select"
			for _, o := range options[f.Name] {
				o.Selected = o.ID == fv.Value
				fv.Options = append(fv.Options, o)
			}
		case resource.KindImages:
			fv.Input = "images"
		default:
			fv.Input = "text"
		}
		view.Fields = append(view.Fields, fv)
	}
	return view
}

// refOptions lists same-store records for every ref input.
func (a *Admin) refOptions(ctx context.Context, s *resource.Schema, storeID string) map[string][]option {
	out := map[string][]option{}
	for _, f := range s.FormFields() {
		if f.Kind != resource.KindRef {
			continue
		}
		target, ok := a.svc.Registry().Lookup(f.Ref)
		if !ok {
			continue
		}
		records, err := a.svc.List(ctx, target, storeID, resource.Query{})
		if err != nil {
			a.logger.Error("failed to load options", "field", f.Name, "store", storeID, "error", err)
			continue
		}
		for _, rec := range records {
			out[f.Name] = append(out[f.Name], option{ID: rec.ID, Label: rec.Label()})
		}
	}
	return out
}

// listRow is one table row.
type listRow struct {
	ID    string
	Label string
	Cells []string
	Date  string
}

func listColumns(s *resource.Schema) []string {
	var cols []string
	for _, f := range displayFields(s) {
		cols = append(cols, f.Label)
	}
	return cols
}

// displayFields are the short fields shown in tables.
func displayFields(s *resource.Schema) []resource.Field {
	var out []resource.Field
	for _, f := range s.FormFields() {
		switch f.Kind {
		case resource.KindText, resource.KindImages:
			continue
		}
		if f.Name == s.LabelField {
			continue
		}
		out = append(out, f)
	}
	return out
}

func toRows(s *resource.Schema, records []*resource.Record) []listRow {
	fields := displayFields(s)
	rows := make([]listRow, 0, len(records))
	for _, rec := range records {
		row := listRow{ID: rec.ID, Label: rec.Label(), Date: rec.CreatedAt.Local().Format("January 2, 2006")}
		for _, f := range fields {
			row.Cells = append(row.Cells, cellText(rec, f))
		}
		rows = append(rows, row)
	}
	return rows
}

func cellText(rec *resource.Record, f resource.Field) string {
	switch f.Kind {
	case resource.KindRef:
		return rec.Related[f.Relation()].Label()
	case resource.KindBool:
		if rec.Bool(f.Name) {
			return "Yes"
		}
		return "No"
	case resource.KindDecimal:
		if d, ok := rec.Values[f.Name].(decimal.Decimal); ok {
			return "$" + d.StringFixed(2)
		}
		return ""
	default:
		return rec.String(f.Name)
	}
}

func (a *Admin) schemaFor(w http.ResponseWriter, r *http.Request) (*resource.Schema, bool) {
	s, ok := a.svc.Registry().Lookup(r.PathValue("entity"))
	if !ok || s.Scope != resource.ScopeStore {
		http.NotFound(w, r)
		return nil, false
	}
	return s, true
}

func collectionURL(shop *resource.Record, s *resource.Schema) string {
	return "/admin/" + shop.ID + "/" + s.Entity
}

func recordURL(shop *resource.Record, s *resource.Schema, id string) string {
	return collectionURL(shop, s) + "/" + id
}

// returnURL is where a finished write lands: the parent for nested
// records, the collection otherwise.
func returnURL(shop *resource.Record, s *resource.Schema, parentID string) string {
	if parentID != "" {
		return recordURL(shop, s, parentID)
	}
	return collectionURL(shop, s)
}

func (a *Admin) handleList(w http.ResponseWriter, r *http.Request, shop *resource.Record) {
	s, ok := a.schemaFor(w, r)
	if !ok {
		return
	}
	q := resource.Query{Equal: map[string]string{}, IncludeHidden: true}
	if s.ParentField != "" {
		q.Equal[s.ParentField] = resource.RootsOnly
	}
	records, err := a.svc.List(r.Context(), s, shop.ID, q)
	if err != nil {
		a.logger.Error("failed to list", "tag", s.Tag+"_GET", "store", shop.ID, "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	r, csrfToken := a.ensureCSRFToken(w, r)
	a.render(w, "list", listData{
		pageData: a.page(w, r, shop, s.PluralName(), csrfToken),
		Schema:   s,
		Columns:  listColumns(s),
		Rows:     toRows(s, records),
	})
}

func (a *Admin) handleNewPage(w http.ResponseWriter, r *http.Request, shop *resource.Record) {
	s, ok := a.schemaFor(w, r)
	if !ok {
		return
	}
	parent := a.loadParent(r.Context(), s, shop, r.URL.Query().Get("parent"))
	r, csrfToken := a.ensureCSRFToken(w, r)
	a.renderForm(w, r, shop, s, nil, parent, resource.NewInput(), nil, csrfToken, nil)
}

// loadParent resolves a nesting parent; unknown ids are ignored.
func (a *Admin) loadParent(ctx context.Context, s *resource.Schema, shop *resource.Record, parentID string) *resource.Record {
	if s.ParentField == "" || parentID == "" {
		return nil
	}
	parent, err := a.svc.Get(ctx, s, shop.ID, parentID)
	if err != nil {
		return nil
	}
	return parent
}

func (a *Admin) handleCreate(w http.ResponseWriter, r *http.Request, shop *resource.Record) {
	s, ok := a.schemaFor(w, r)
	if !ok {
		return
	}
	if !a.checkForm(w, r, collectionURL(shop, s)+"/new") {
		return
	}
	parent := a.loadParent(r.Context(), s, shop, r.FormValue("parent"))

	in, errs := decodeAndValidate(s, r)
	if len(errs) > 0 {
		r, csrfToken := a.ensureCSRFToken(w, r)
		a.renderForm(w, r, shop, s, nil, parent, in, errs, csrfToken, nil)
		return
	}

	user := getUserFromContext(r)
	var sub submission
	err := sub.run(func() error {
		var err error
		if parent != nil {
			_, err = a.svc.CreateChild(r.Context(), s, user.ID, shop.ID, parent.ID, in)
		} else {
			_, err = a.svc.Create(r.Context(), s, user.ID, shop.ID, in)
		}
		return err
	})
	defer sub.reset()
	if err != nil {
		a.submitFailed(w, r, shop, s, nil, parent, in, err)
		return
	}

	parentID := ""
	if parent != nil {
		parentID = parent.ID
	}
	a.redirectWithNotice(w, r, returnURL(shop, s, parentID), noticeSuccess, createdMessage(s))
}

func (a *Admin) handleEditPage(w http.ResponseWriter, r *http.Request, shop *resource.Record) {
	s, ok := a.schemaFor(w, r)
	if !ok {
		return
	}
	rec, err := a.svc.Get(r.Context(), s, shop.ID, r.PathValue("id"))
	if err != nil {
		if !errors.Is(err, resource.ErrNotFound) {
			a.logger.Error("failed to load record", "tag", s.Tag+"_GET", "error", err)
		}
		http.Redirect(w, r, collectionURL(shop, s), http.StatusSeeOther)
		return
	}
	parent := a.loadParent(r.Context(), s, shop, rec.String(s.ParentField))

	r, csrfToken := a.ensureCSRFToken(w, r)
	a.renderForm(w, r, shop, s, rec, parent, resource.FromRecord(rec), nil, csrfToken, nil)
}

func (a *Admin) handleUpdate(w http.ResponseWriter, r *http.Request, shop *resource.Record) {
	s, ok := a.schemaFor(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if !a.checkForm(w, r, recordURL(shop, s, id)) {
		return
	}
	rec, err := a.svc.Get(r.Context(), s, shop.ID, id)
	if err != nil {
		a.redirectWithNotice(w, r, collectionURL(shop, s), noticeError, msgSomethingWrong)
		return
	}
	parent := a.loadParent(r.Context(), s, shop, rec.String(s.ParentField))

	in, errs := decodeAndValidate(s, r)
	if len(errs) > 0 {
		r, csrfToken := a.ensureCSRFToken(w, r)
		a.renderForm(w, r, shop, s, rec, parent, in, errs, csrfToken, nil)
		return
	}

	user := getUserFromContext(r)
	var sub submission
	err = sub.run(func() error {
		_, err := a.svc.Update(r.Context(), s, user.ID, shop.ID, id, in)
		return err
	})
	defer sub.reset()
	if err != nil {
		a.submitFailed(w, r, shop, s, rec, parent, in, err)
		return
	}

	parentID := ""
	if parent != nil {
		parentID = parent.ID
	}
	a.redirectWithNotice(w, r, returnURL(shop, s, parentID), noticeSuccess, updatedMessage(s))
}

// submitFailed re-renders the form after a rejected write. Field
// problems found by the service are shown inline.
func (a *Admin) submitFailed(w http.ResponseWriter, r *http.Request, shop *resource.Record, s *resource.Schema, rec, parent *resource.Record, in resource.Input, err error) {
	var errs map[string]string
	var verr *resource.ValidationError
	if errors.As(err, &verr) {
		errs = map[string]string{verr.Field: verr.Message}
	} else {
		a.logger.Error("form submit failed", "tag", s.Tag+"_"+submitMethod(rec), "store", shop.ID, "error", err)
	}
	r, csrfToken := a.ensureCSRFToken(w, r)
	a.renderForm(w, r, shop, s, rec, parent, in, errs, csrfToken, &notice{Kind: noticeError, Message: msgSomethingWrong})
}

func submitMethod(rec *resource.Record) string {
	if rec == nil {
		return "POST"
	}
	return "PATCH"
}

func decodeAndValidate(s *resource.Schema, r *http.Request) (resource.Input, map[string]string) {
	in, err := resource.DecodeForm(s, r.PostForm)
	if err != nil {
		var verr *resource.ValidationError
		if errors.As(err, &verr) {
			return in, map[string]string{verr.Field: verr.Message}
		}
		return in, map[string]string{"": err.Error()}
	}
	if errs := resource.Validate(s, in, resource.ModeForm); len(errs) > 0 {
		return in, errs.ByField()
	}
	return in, nil
}

// renderForm renders a create or edit form. A non-nil n replaces any
// pending notification.
func (a *Admin) renderForm(w http.ResponseWriter, r *http.Request, shop *resource.Record, s *resource.Schema, rec, parent *resource.Record, in resource.Input, errs map[string]string, csrfToken string, n *notice) {
	data := formData{
		Schema: s,
		Record: rec,
		Parent: parent,
		Form:   newFormView(s, in, errs, a.refOptions(r.Context(), s, shop.ID)),
	}

	parentID := ""
	if parent != nil {
		parentID = parent.ID
	}
	data.CancelURL = returnURL(shop, s, parentID)

	if rec == nil {
		data.Heading = "Create " + s.Singular
		if parent != nil {
			data.Heading = "Create sub-" + s.Singular + " of " + parent.Label()
		}
		data.Action = collectionURL(shop, s) + "/new"
	} else {
		data.Heading = "Edit " + s.Singular
		data.Action = recordURL(shop, s, rec.ID)
		data.DeleteURL = recordURL(shop, s, rec.ID) + "/delete"
		if s.ParentField != "" {
			children, err := a.svc.List(r.Context(), s, shop.ID, resource.Query{Equal: map[string]string{s.ParentField: rec.ID}})
			if err != nil {
				a.logger.Error("failed to list children", "tag", s.Tag+"_GET", "error", err)
			}
			data.Children = toRows(s, children)
			data.ChildNew = collectionURL(shop, s) + "/new?parent=" + rec.ID
		}
	}

	data.pageData = a.page(w, r, shop, data.Heading, csrfToken)
	if n != nil {
		data.Notice = n
	}
	a.render(w, "form", data)
}

func (a *Admin) handleDeletePage(w http.ResponseWriter, r *http.Request, shop *resource.Record) {
	s, ok := a.schemaFor(w, r)
	if !ok {
		return
	}
	rec, err := a.svc.Get(r.Context(), s, shop.ID, r.PathValue("id"))
	if err != nil {
		http.Redirect(w, r, collectionURL(shop, s), http.StatusSeeOther)
		return
	}
	modal, _ := ModalClosed.Next(ModalShow)

	r, csrfToken := a.ensureCSRFToken(w, r)
	a.render(w, "confirm", confirmData{
		pageData:  a.page(w, r, shop, "Delete "+s.Singular, csrfToken),
		Modal:     modal,
		Heading:   "Delete " + s.Singular,
		Label:     rec.Label(),
		Action:    recordURL(shop, s, rec.ID) + "/delete",
		CancelURL: recordURL(shop, s, rec.ID),
	})
}

func (a *Admin) handleDelete(w http.ResponseWriter, r *http.Request, shop *resource.Record) {
	s, ok := a.schemaFor(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	back := recordURL(shop, s, id)
	if !a.checkForm(w, r, back) {
		return
	}
	if modalDecision(r.FormValue("confirm")) != ModalConfirmed {
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	parentID := ""
	if rec, err := a.svc.Get(r.Context(), s, shop.ID, id); err == nil {
		parentID = rec.String(s.ParentField)
	}

	user := getUserFromContext(r)
	var sub submission
	err := sub.run(func() error {
		_, err := a.svc.Delete(r.Context(), s, user.ID, shop.ID, id)
		return err
	})
	defer sub.reset()
	if err != nil {
		if !errors.Is(err, resource.ErrReferenced) {
			a.logger.Error("delete failed", "tag", s.Tag+"_DELETE", "store", shop.ID, "error", err)
		}
		a.redirectWithNotice(w, r, back, noticeError, deleteFailedMessage(s))
		return
	}
	a.redirectWithNotice(w, r, returnURL(shop, s, parentID), noticeSuccess, deletedMessage(s))
}
