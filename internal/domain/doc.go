// Package domain models Brazilian federal highway police (PRF) accident
// records and the filtering the dashboard applies to them.
//
// # Data Source
//
// PRF publishes yearly accident extracts as semicolon-delimited CSV files in
// ISO-8859-1 (Latin-1). One row is one accident occurrence. The dashboard
// reads a single extract, such as acidentes2025_todas_causas_tipos.csv, from
// disk or from a URL.
//
// # Column Conventions
//
//	data_inversa     date, ISO "2025-03-14" (older extracts: "14/03/2025")
//	horario          time of day, "18:45:00"
//	latitude         decimal comma, "-23,5505"
//	longitude        decimal comma, "-46,6333"
//	uf               two-letter state code, "SP"
//	municipio        municipality name in upper case, "SAO PAULO"
//	causa_acidente   free-text cause category
//	tipo_acidente    accident type category
//	mortos           fatality count; blank when not confirmed
//
// # Cleaning
//
// Rows are dropped, never repaired, when the combined date and time do not
// parse or when either coordinate does not parse. A missing or non-numeric
// fatality count becomes 0 and keeps the row.
//
// The retained window is the six calendar months ending at the newest
// timestamp in the file. It is anchored to the data, not the wall clock, so a
// given file always produces the same dataset. Month subtraction clamps the
// day: 2024-08-31 minus six months is 2024-02-29.
//
// # Filtering
//
// Multi-select dimensions (state, month) treat an empty selection as "no
// constraint". Single-choice dimensions (municipality, cause) use the [All]
// sentinel for the same purpose. Municipality options cascade from the state
// selection; see [AvailableMunicipalities].
package domain
