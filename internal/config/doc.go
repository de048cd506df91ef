// Package config loads Locate's user configuration.
//
// Configuration is read from ~/.locate/config.yaml (or the file named by
// LOCATE_CONFIG). A missing file is not an error; every key has a default:
//
//	database_path: ~/.locate/locate.sqlite
//	batch_size: 500
//	exclusions: [Library, .git, node_modules]
//	include_hidden: false
//	search:
//	  default_limit: 50
//	  max_limit: 200
//	  cache_size: 256
//	log_level: info
//
// LOCATE_DB_PATH, LOCATE_BATCH_SIZE and LOCATE_LOG_LEVEL override the file.
package config
