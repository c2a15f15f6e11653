package migrations

import _ "embed"

//go:embed 0002_create_game_results.sql
var createGameResultsSQL string

func init() {
	Migrations.MustRegister(execSQL(createGameResultsSQL), execSQL(`DROP TABLE IF EXISTS game_results`))
}
