// Package settings is the YAML settings file.
//
// The file is created with defaults on first load, written atomically with
// 0600 permissions, and validated against an embedded CUE schema after
// defaults are filled in. File implements the engine's settings store: Get
// projects the notification preferences, Put writes them back.
package settings
