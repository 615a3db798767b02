package version

// Version is the wbgo release version.
const Version = "0.1.0"
