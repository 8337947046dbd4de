// Package demo is a small control panel built on the embedhttp engine. It
// exercises every kind of action the engine supports:
//
//	GET  /calculate?x=&y=   typed HTML page from query parameters
//	POST /greet             typed HTML page from a url-encoded form
//	GET  /random            typed text fragment for AJAX calls
//	GET  /up, /down         shared counter, also for AJAX calls
//	GET  /updates           generic text/event-stream fed by a ticker
//	GET  /settings          stored settings as text
//	POST /settings          store form fields, persisted in badger
package demo
