// Package domain models daily temperature observations from Environment and
// Climate Change Canada's historical climate archive.
//
// # Data Source
//
// Observations come from the bulk data export at
// https://climate.weather.gc.ca/climate_data/bulk_data_e.html, one CSV page
// per station per month at daily granularity (timeframe 2). Pages are fetched
// newest-first, walking backward a month at a time; a 404 marks the edge of
// the station's recorded history.
//
// # CSV Conventions
//
// Header spellings vary across export vintages. The date column has appeared
// as "Date/Time", "Date", and "Local Date"; the temperature columns carry a
// degree symbol whose encoding depends on how the page was served, so
// "Max Temp (°C)" can arrive as "Max Temp (Â°C)" (UTF-8 bytes read as
// Latin-1) or occasionally "Max Temp (C)". [ParseMonth] resolves each logical
// field against an ordered synonym list, case-insensitively, once per page.
//
// Date cells:
//
//	"2024-05-01" or "2024-05-01 00:00"; only the first 10 characters are
//	significant. Rows whose date falls outside the requested month are
//	summary or footer lines and are dropped.
//
// Temperature cells:
//
//	Decimal degrees Celsius. "" and "NA" mean the station reported nothing;
//	"M" is the archive's missing-data flag. All three, and anything else
//	that fails numeric parsing, become a nil temperature. A day whose three
//	temperatures are all nil is still a valid observation ("known but
//	unmeasured").
//
// # Storage Key
//
// Uniqueness in storage is (date, location), where location is the human
// label the caller scopes a run to (e.g. "Winnipeg"), not the numeric
// station identifier used on the wire.
package domain
