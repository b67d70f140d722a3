// Package config handles configuration loading for storeadmin.
//
// # Overview
//
// Configuration is loaded from a YAML file (or TOML, when the file name
// ends in .toml) with environment variable expansion. Defaults are applied
// after parsing and the result is validated.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from STOREADMIN_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/storeadmin/config.yaml
//  3. ~/.config/storeadmin/config.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${STOREADMIN_JWT_SECRET}"
//
// Unset variables expand to the empty string.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	server:
//	  read_header_timeout: "10s"
//	  shutdown_timeout: "15s"
//	auth:
//	  token_ttl: "720h"
//	webadmin:
//	  session_duration: "168h"
//
// # Configuration Sections
//
//	server:
//	  http_addr: "localhost:8080"
//
//	database:
//	  driver: "sqlite"          # or "postgres"
//	  path: "./storeadmin.db"   # sqlite
//	  dsn: ""                   # postgres
//
//	auth:
//	  jwt_secret: "..."         # at least 32 bytes
//
//	cors:
//	  allowed_origin: "*"
//
//	logging:
//	  level: "info"             # debug, info, warn, error
//	  format: "text"            # text or json
//
//	metrics:
//	  enabled: false
//	  path: "/metrics"
//
//	events:
//	  enabled: false
//	  kafka:
//	    brokers: ["localhost:9092"]
//	    topic: "storeadmin.changes"
//
//	webadmin:
//	  enabled: true
//	  secure_cookies: false
package config
