package config

// ExampleConfig returns an example configuration showing all available options.
func ExampleConfig() string {
	return `# tasklist configuration file
# Values can be overridden by TASKLIST_* environment variables or CLI flags

# How overlapping saves reach the store:
#   concurrent - every save runs on its own, the last one to finish wins
#   queued     - saves are written one at a time in the order they were made
save_mode = "concurrent"

# Task id format: uuid7 (time-ordered UUID) or timestamp (Unix milliseconds)
id_format = "uuid7"

# Log directory, one file per run (supports ~ expansion and %VAR% on Windows)
log_dir = "~/.tasklist/logs"

# Log level (debug, info, warn, error) and format (text, json, logfmt)
log_level = "info"
log_format = "text"
log_timestamps = false
log_caller = false

[store]
# Backend: file, memory, or mysql
backend = "file"

# Directory for the file backend; each key is one file
dir = "~/.tasklist/store"

# Key holding the task list
key = "tasks"

# MySQL backend
# mysql_dsn = "user:password@tcp(localhost:3306)/tasklist"
# mysql_table = "kv_store"
`
}
