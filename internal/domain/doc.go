// Package domain models Kandilli Observatory (KOERI) earthquake reports.
//
// # Data Source
//
// The Bogazici University Kandilli Observatory and Earthquake Research
// Institute publishes the most recent events as a plain-text table wrapped
// in a <pre> element at http://www.koeri.boun.edu.tr/scripts/lst1.asp. The
// page is served in a Turkish single-byte code page (windows-1254); the feed
// adapter decodes it to UTF-8 before the table reaches [ParseFeed].
//
// # Table Layout
//
// A free-form header block is terminated by a line of dashes. Every data
// line after it is whitespace-delimited:
//
//	Date       Time      Lat(N)  Long(E)  Depth(km)  MD   ML   Mw   Location          Quality
//	2025.08.03 13:41:58  36.2197 36.2042  8.5        -.-  2.2  6.2  ANTAKYA (HATAY)   İlksel
//
// Location labels contain spaces, so the location is every field between
// the Mw column and the final quality field. Lines with fewer than nine
// fields are skipped. A blank line ends the data block.
//
// Magnitude encoding:
//
//	"-.-" is the observatory sentinel for an unreported magnitude. MD
//	(duration) is kept for reference only. Scoring uses Mw when present and
//	falls back to ML; an event with neither is not scored.
//
// Time:
//
//	Date and time are Turkish civil time, a fixed UTC+3 offset with no
//	daylight saving since 2016.
//
// Ordering:
//
//	The table is newest first. Parsing stops at the first record older than
//	the stored bookmark date.
//
// # Region of Interest
//
// Records outside longitude 24.58°E–45°E and latitude 36°N–42°N are dropped
// before any enrichment. 36°N–42°N and 45°E bound Turkey and its major fault
// systems. 24.58°E is the centre of Crete on the Hellenic arc, roughly 310 km
// from the nearest Turkish coast, where an Mw 7.5+ event could still cause
// structural damage or a tsunami on the Turkish shore.
//
// # ID Generation
//
// Event IDs are deterministic SHA-256 hashes of date|time|lat|lon|depth, so
// re-reading the same feed line yields the same ID and the event store can
// upsert instead of append. See [generateID].
package domain
