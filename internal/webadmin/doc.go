// Package webadmin provides the browser dashboard for store owners.
//
// # Overview
//
// Every store-scoped entity gets the same four pages, generated from its
// resource schema:
//
//   - list:    /admin/{storeId}/{entity}
//   - create:  /admin/{storeId}/{entity}/new
//   - edit:    /admin/{storeId}/{entity}/{id}
//   - delete:  /admin/{storeId}/{entity}/{id}/delete (confirmation)
//
// Categories additionally list their sub-categories on the edit page and
// accept ?parent= on the create page.
//
// # Forms
//
// Forms validate in resource.ModeForm, which also enforces the fields the
// storefront needs (every store setting, for example). Field messages are
// shown inline. Any other failed submit shows "Something went wrong."; a
// failed delete shows the schema's dependents hint. Successful writes
// redirect to the collection with a one-shot notification cookie.
//
// Submission and the confirmation modal are modelled as explicit state
// machines in flow.go. The first-run "create store" modal is a setupState
// computed per request from the user's stores.
//
// # Authentication
//
// Username/password login backed by bcrypt hashes. Sessions are random
// tokens stored server side and sent in an HttpOnly cookie scoped to
// /admin. Every form carries a CSRF token that must match the CSRF
// cookie.
package webadmin
