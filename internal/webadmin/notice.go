// ABOUTME: One-shot notifications carried across redirects in a cookie
// ABOUTME: Success and failure messages for create, update and delete

package webadmin

import (
	"net/http"

	"github.com/2389/storeadmin/internal/resource"
)

type noticeKind string

const (
	noticeSuccess noticeKind = "success"
	noticeError   noticeKind = "error"
)

const msgSomethingWrong = "Something went wrong."

type notice struct {
	Kind    noticeKind
	Message string
}

func createdMessage(s *resource.Schema) string { return s.Singular + " has been created." }
func updatedMessage(s *resource.Schema) string { return s.Singular + " has been updated." }
func deletedMessage(s *resource.Schema) string { return s.Singular + " has been deleted." }

// deleteFailedMessage is shown on any failed delete.
func deleteFailedMessage(s *resource.Schema) string {
	if s.DependentsHint == "" {
		return msgSomethingWrong
	}
	return s.DependentsHint
}

// redirectWithNotice sets the flash cookie and redirects, which reloads
// the target route.
func (a *Admin) redirectWithNotice(w http.ResponseWriter, r *http.Request, url string, kind noticeKind, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    encodeFlash(kind, msg),
		Path:     "/admin",
		HttpOnly: true,
		Secure:   a.secure(r),
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// takeNotice returns the pending notification and clears it.
func (a *Admin) takeNotice(w http.ResponseWriter, r *http.Request) *notice {
	cookie, err := r.Cookie(FlashCookieName)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    "",
		Path:     "/admin",
		MaxAge:   -1,
		HttpOnly: true,
	})
	n, ok := decodeFlash(cookie.Value)
	if !ok {
		return nil
	}
	return n
}
