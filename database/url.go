package database

import (
	"net/url"
	"strings"
)

// ConstructDatabaseURL joins a base Postgres URL with an optional database
// name and defaults sslmode to disable. Unparseable input is returned as-is
// so pgx can report the error.
func ConstructDatabaseURL(baseURL, databaseName string) string {
	if baseURL == "" {
		return ""
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return baseURL
	}

	if databaseName != "" {
		u.Path = "/" + strings.Trim(databaseName, "/")
	}

	query := u.Query()
	if query.Get("sslmode") == "" {
		query.Set("sslmode", "disable")
		u.RawQuery = query.Encode()
	}

	return u.String()
}
