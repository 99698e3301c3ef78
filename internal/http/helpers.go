package http

import "strconv"

// etag is the weak validator for a ledger version.
func etag(version int64) string {
	return `W/"` + strconv.FormatInt(version, 10) + `"`
}
