// Package migrations embeds the SQL migrations applied by the db command and the test helpers.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
