// Package config loads server and CLI settings with viper.
//
// Sources, lowest precedence first: built-in defaults, an optional YAML or
// JSON file, DOCCHUNK_* environment variables (dots become underscores, so
// split.block_size is DOCCHUNK_SPLIT_BLOCK_SIZE), then values set directly
// on the viper instance passed to LoadWith, such as bound command flags.
//
// Example file:
//
//	storage:
//	  db_path: ~/.docchunk/docchunk.db
//	split:
//	  method: auto
//	  block_size: 1000
//	  overlap: 15
//	splitter:
//	  commit_mode: incremental
//	tasks:
//	  retention: 1h
//	  max_retained: 1024
//	log:
//	  level: info
//	metrics:
//	  address: ":9090"
package config
