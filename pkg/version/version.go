package version

// Version is the application version, stamped at release time.
var Version = "0.3.0"
