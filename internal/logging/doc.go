// Package logging provides a minimal structured logging facade for the
// progress display. The library logs almost nothing in normal operation;
// the facade exists so that absorbed output failures are reported
// somewhere visible without coupling callers to a concrete logger.
//
// The default backend is zerolog writing to stderr at warn level. Hosts
// that run their own zerolog pipeline can wrap it with NewZerologAdapter;
// everything else can implement the three-method Logger interface.
package logging
