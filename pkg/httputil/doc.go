// Package httputil holds the response envelope, request decoding with
// validator/v10, client address resolution and the generic HTTP middleware
// stack (request id, access logging, recovery, CORS, security headers, body
// limit, timeout).
//
// Every response body has the shape
//
//	{"success": bool, "message": "...", "data": ...}
//
// and errors are rendered from the apperr taxonomy by WriteAppError.
package httputil
