// Package config provides configuration management for the Data Sweeper.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority), including a local .env file
//	2. A YAML file (sweeper.yaml, configs/sweeper.yaml or $SWEEPER_CONFIG_FILE)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern SWEEPER_<SECTION>_<FIELD>:
//
//	SWEEPER_SERVER_PORT=8080
//	SWEEPER_LOGGING_LEVEL=debug
//	SWEEPER_UPLOAD_MAX_FILE_SIZE=10485760
//	SWEEPER_UPLOAD_ALLOWED_EXTENSIONS=.csv,.xlsx
//	SWEEPER_SESSION_TTL=15m
//	SWEEPER_SECURITY_ALLOWED_ORIGINS=http://localhost:8080,http://127.0.0.1:8080
//
// # YAML File
//
//	server:
//	  port: 9090
//	upload:
//	  max_files: 5
//	session:
//	  ttl: 10m
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv := &http.Server{Addr: cfg.Address()}
package config
