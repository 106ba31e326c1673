// Package resolver turns user stop input into stop ids.
//
// Resolution order for free text is: exact match on display name, stop
// name, code or id; then, only on an explicit commit, geocoding the text as
// an address and snapping to the nearest stop. Fuzzy matches are returned
// as suggestions and never resolve silently.
//
// Geocoding goes through RateLimitedGeocoder, which allows one request at a
// time with a minimum spacing and caches answers for the life of the
// process. ResolveAsync debounces typed input per field.
package resolver
