package config

import "time"

// Application constants
const (
	// Application Info
	AppName    = "datasweeper"
	AppTitle   = "Data Sweeper"
	AppVersion = "1.0.0"

	// Upload limits
	DefaultMaxFileSize = 50 << 20 // 50MB per file
	DefaultMaxFiles    = 20
	DefaultPreviewRows = 5

	// Session store
	DefaultSessionTTL     = 30 * time.Minute
	DefaultSessionEntries = 100

	// Charting
	DefaultChartBars = 200

	// Rate Limiting
	DefaultRateLimit = 50 // requests per second
	DefaultBurstSize = 100

	// Network Timeouts
	DefaultRequestTimeout = 60 * time.Second
	WebSocketPingPeriod   = 30 * time.Second
	WebSocketPongWait     = 60 * time.Second
	WebSocketWriteWait    = 10 * time.Second

	// HTTP Headers
	HeaderRequestID     = "X-Request-ID"
	HeaderDownloadLabel = "X-Download-Label"
)
