// Пакет migrations встраивает SQL-миграции схемы историй в бинарник,
// чтобы сервер применял их при старте без внешних файлов.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
