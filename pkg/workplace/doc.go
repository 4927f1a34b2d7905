// Package workplace is a small client for the Workplace Graph API endpoints
// steward needs: the Send API (text and button templates), profile lookups
// and the paginated community member list.
//
// Every call is bounded by the client's per-request timeout. Failures come
// back as *APIError for non-2xx responses and wrap ErrTimeout when the
// deadline was hit, so callers can tell the two apart:
//
//	if errors.Is(err, workplace.ErrTimeout) { ... }
//	var apiErr *workplace.APIError
//	if errors.As(err, &apiErr) { ... apiErr.StatusCode ... }
//
// Requests carry the access token and an appsecret_proof derived from the
// app secret.
package workplace
