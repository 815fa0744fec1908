package model

// CurrentVersion is the AppData schema version written on every save.
const CurrentVersion = "1.0.0"
