// Package migrations embeds the SQL schema for the credential store. Tests and
// the server's -migrate flag apply the *.up.sql files in name order.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
