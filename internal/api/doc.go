// Package api serves the JSON REST endpoints of the store dashboard.
//
// Every store-scoped entity shares one set of routes:
//
//	GET    /api/{storeId}/{entity}        list, newest first, with filters
//	POST   /api/{storeId}/{entity}        create
//	GET    /api/{storeId}/{entity}/{id}   read one (null when absent)
//	PATCH  /api/{storeId}/{entity}/{id}   conditional update, {"count": n}
//	DELETE /api/{storeId}/{entity}/{id}   conditional delete, {"count": n}
//
// Stores have their own routes under /api/stores. Sub-categories are
// created with POST /api/{storeId}/categories/{categoryId}.
//
// Updates and deletes match on record id and owner. When the caller does
// not own the store nothing matches and the answer is 200 with a zero
// count; the service logs a warning with the entity tag.
package api
