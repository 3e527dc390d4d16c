// assets/embed.go
//
// Files compiled into the binary.
//   - sql/*.sql: schema migrations, applied in lexical order by history.Migrate.

package assets

import "embed"

//go:embed sql/*.sql
var Migrations embed.FS
