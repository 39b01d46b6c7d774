// Package quote is the client for the quote preparation REST API and the
// line-item types it carries.
//
// Two line kinds exist: SupplyLine (parts and supplies) and WorkforceLine
// (labor). Both carry a client uid, which never leaves the local snapshot
// in any meaningful way, a server id (0 until created) and monetary
// fields held as shopspring decimals.
//
// Reads go through Client (FetchShock, FetchSupplies, FetchWorkforce).
// Writes go through the per-resource Lines value returned by
// Client.Supplies and Client.Workforce, which satisfies the row engine's
// API interface:
//
//	POST   /api/shocks/{shock}/{resource}/batch   {"items":[...]} -> {"ids":[...]}
//	PUT    /api/{resource}/{id}
//	POST   /api/{resource}/{id}/validate
//	DELETE /api/{resource}/{id}
//	PUT    /api/shocks/{shock}/{resource}/order   {"ids":[...]}
//
// Lines are checked with go-playground/validator before they are sent, so
// a blank label fails locally with a readable message instead of a 422.
//
// Error responses carrying {"message": "..."} surface that message as the
// error text; otherwise the error reads "api <path> returned status <code>".
package quote
