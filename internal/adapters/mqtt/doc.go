// Package mqtt publishes batches and rate reports to an MQTT broker and
// accepts pause/export commands on control topics.
//
// Topics, relative to the configured prefix:
//
//	<prefix>/batch            one JSON message per sealed batch
//	<prefix>/rate             samples per second, once per reporting interval
//	<prefix>/status           retained online/offline marker (LWT)
//	<prefix>/control/paused   "true", "false" or "toggle"
//	<prefix>/control/export   "true", "false" or "toggle"
//
// Publishing never blocks the ingestion path: messages go through a
// bounded buffer drained by a background goroutine and are dropped, with a
// counter, when the buffer is full.
package mqtt
