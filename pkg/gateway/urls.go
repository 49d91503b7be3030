package gateway

import (
	"net/url"
	"strconv"
	"strings"
)

// Coordinates locate an application inside the store.
type Coordinates struct {
	BaseURL string
	Org     string
	App     string
}

func (c Coordinates) appURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + url.PathEscape(c.Org) + "/" + url.PathEscape(c.App)
}

// CollectionURL returns {base}/{org}/{app}/{collection}.
func (c Coordinates) CollectionURL(collection string) string {
	return c.appURL() + "/" + url.PathEscape(collection)
}

// TokenURL returns {base}/{org}/{app}/token.
func (c Coordinates) TokenURL() string {
	return c.appURL() + "/token"
}

// QueryURL returns the collection URL with ql and limit parameters.
// The same URL is used for GET queries and DELETE-by-query.
func (c Coordinates) QueryURL(collection, ql string, limit int) string {
	q := url.Values{}
	q.Set("ql", ql)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.CollectionURL(collection) + "?" + q.Encode()
}
