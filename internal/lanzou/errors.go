// Package lanzou implements a client for the Lanzou-style consumer cloud
// drive. The service has no documented API: everything here talks to the
// same HTML pages and AJAX endpoints the web UI uses, so field extraction is
// pattern-based and deliberately tolerant of markup drift.
package lanzou

import "errors"

// Flat result taxonomy. Operations return these as ordinary error values;
// callers match with errors.Is all the way up to the UI boundary.
var (
	// ErrFailed is the generic "remote said no" result. Extraction failures
	// (pattern not found where one was expected) also surface as ErrFailed:
	// the service changes markup without notice, and callers cannot do
	// anything smarter than report a generic failure.
	ErrFailed = errors.New("operation failed")

	// ErrIDInvalid reports a file/folder id the remote does not recognize.
	ErrIDInvalid = errors.New("invalid file or folder id")

	// ErrPasswordWrong reports a rejected share or folder password.
	ErrPasswordWrong = errors.New("wrong password")

	// ErrPasswordMissing means the share demands a password and none was
	// supplied. Never retried automatically; new user input is required.
	ErrPasswordMissing = errors.New("password required")

	// ErrMkdir reports a failed folder creation.
	ErrMkdir = errors.New("folder creation failed")

	// ErrURLInvalid reports a share URL this client does not understand.
	ErrURLInvalid = errors.New("unsupported share url")

	// ErrItemGone reports a share whose target was cancelled or removed.
	ErrItemGone = errors.New("item cancelled or removed")

	// ErrPath reports an unusable local path.
	ErrPath = errors.New("bad local path")

	// ErrNetwork is the single translation of every transport-level failure
	// (refused, timeout, DNS). Produced only by the Session layer.
	ErrNetwork = errors.New("network unavailable")

	// ErrNotLoggedIn is returned by authenticated calls before Login.
	ErrNotLoggedIn = errors.New("not logged in")
)

// Extraction results. These stay inside the package except where a caller
// genuinely needs to tell "field absent" from "markup broke".
var (
	// errNotFound means the page simply does not carry the field (e.g. an
	// item with no description).
	errNotFound = errors.New("field not present")

	// errMalformed means the field was located but its payload did not parse.
	errMalformed = errors.New("field malformed")
)
