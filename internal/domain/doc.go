// Package domain models per-station weather observations and the normalized
// relational entities derived from them.
//
// # Data Source
//
// Observations arrive as an archive of loosely structured records, one per
// station and week. Each record bundles three sub-documents: weather
// measurements, date metadata, and station metadata. A sub-document may be a
// native JSON object or a string/byte value that itself encodes a JSON
// object. There is no fixed input contract; field names vary across records
// ("Avg Temp", "AvgTemp", "average ") and any field may be absent.
//
// # Record Shapes
//
// A raw record takes exactly one of three shapes:
//
//	(a) an ordered triple [weather, date, station];
//	(b) an object carrying the three sub-documents under accepted aliases
//	    (weather/w/data, date/d, station/s);
//	(c) a single object treated entirely as the weather sub-document.
//
// Anything else is a malformed record, isolated and counted by the caller.
//
// # Canonical Row
//
// Normalization flattens a record into a fixed 14-field row: precipitation,
// avg_temp, max_temp, min_temp, wind_direction, wind_speed, date_full, year,
// month, week_of, city, code, location, state. Numeric fields preserve the
// kind of the source value, so an integral 72 stays integral through export
// while "" and unparseable strings become missing rather than zero.
//
// # State Identity
//
// The "state" field mixes full names ("Alabama") with two-letter codes
// ("AL"). A value that already looks like a code never spawns a State entity;
// full names derive their canonical code from the first group location of the
// shape "<city>, <CODE>", falling back to the first two characters uppercased.
// See [ResolveStateCodes] for the collision rules.
package domain
