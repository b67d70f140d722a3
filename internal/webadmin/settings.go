// ABOUTME: Store settings page: storefront content fields and store deletion
// ABOUTME: Every settings field is required by the form; deletion needs an empty store

package webadmin

import (
	"errors"
	"net/http"

	"github.com/2389/storeadmin/internal/resource"
)

func settingsURL(shop *resource.Record) string {
	return "/admin/" + shop.ID + "/settings"
}

func (a *Admin) handleSettingsPage(w http.ResponseWriter, r *http.Request, shop *resource.Record) {
	r, csrfToken := a.ensureCSRFToken(w, r)
	a.renderSettings(w, r, shop, resource.FromRecord(shop), nil, csrfToken, nil)
}

func (a *Admin) handleSettingsSave(w http.ResponseWriter, r *http.Request, shop *resource.Record) {
	if !a.checkForm(w, r, settingsURL(shop)) {
		return
	}
	in, errs := decodeAndValidate(resource.Stores, r)
	if len(errs) > 0 {
		r, csrfToken := a.ensureCSRFToken(w, r)
		a.renderSettings(w, r, shop, in, errs, csrfToken, nil)
		return
	}

	user := getUserFromContext(r)
	var sub submission
	err := sub.run(func() error {
		_, err := a.svc.Update(r.Context(), resource.Stores, user.ID, "", shop.ID, in)
		return err
	})
	defer sub.reset()
	if err != nil {
		var verr *resource.ValidationError
		if !errors.As(err, &verr) {
			a.logger.Error("settings save failed", "tag", resource.Stores.Tag+"_PATCH", "store", shop.ID, "error", err)
		}
		r, csrfToken := a.ensureCSRFToken(w, r)
		a.renderSettings(w, r, shop, in, nil, csrfToken, &notice{Kind: noticeError, Message: msgSomethingWrong})
		return
	}
	a.redirectWithNotice(w, r, settingsURL(shop), noticeSuccess, updatedMessage(resource.Stores))
}

func (a *Admin) renderSettings(w http.ResponseWriter, r *http.Request, shop *resource.Record, in resource.Input, errs map[string]string, csrfToken string, n *notice) {
	data := formData{
		Schema:    resource.Stores,
		Record:    shop,
		Heading:   "Settings",
		Action:    settingsURL(shop),
		CancelURL: "/admin/" + shop.ID,
		DeleteURL: settingsURL(shop) + "/delete",
		Form:      newFormView(resource.Stores, in, errs, nil),
	}
	data.pageData = a.page(w, r, shop, "Settings", csrfToken)
	if n != nil {
		data.Notice = n
	}
	a.render(w, "form", data)
}

func (a *Admin) handleStoreDeletePage(w http.ResponseWriter, r *http.Request, shop *resource.Record) {
	modal, _ := ModalClosed.Next(ModalShow)
	r, csrfToken := a.ensureCSRFToken(w, r)
	a.render(w, "confirm", confirmData{
		pageData:  a.page(w, r, shop, "Delete store", csrfToken),
		Modal:     modal,
		Heading:   "Delete store",
		Label:     shop.Label(),
		Action:    settingsURL(shop) + "/delete",
		CancelURL: settingsURL(shop),
	})
}

func (a *Admin) handleStoreDelete(w http.ResponseWriter, r *http.Request, shop *resource.Record) {
	if !a.checkForm(w, r, settingsURL(shop)) {
		return
	}
	if modalDecision(r.FormValue("confirm")) != ModalConfirmed {
		http.Redirect(w, r, settingsURL(shop), http.StatusSeeOther)
		return
	}

	user := getUserFromContext(r)
	var sub submission
	err := sub.run(func() error {
		_, err := a.svc.Delete(r.Context(), resource.Stores, user.ID, "", shop.ID)
		return err
	})
	defer sub.reset()
	if err != nil {
		if !errors.Is(err, resource.ErrReferenced) {
			a.logger.Error("store delete failed", "tag", resource.Stores.Tag+"_DELETE", "store", shop.ID, "error", err)
		}
		a.redirectWithNotice(w, r, settingsURL(shop), noticeError, deleteFailedMessage(resource.Stores))
		return
	}
	a.redirectWithNotice(w, r, "/admin/", noticeSuccess, deletedMessage(resource.Stores))
}
