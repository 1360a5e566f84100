package main

const (
	ExitSuccess         = 0 // Success
	ExitError           = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError     = 2 // Configuration error (missing project, library dir, bad thresholds)
	ExitDataError       = 3 // Data error (malformed network or library table)
	ExitLibraryNotFound = 4 // Named library has no matching file under the library dir
)
