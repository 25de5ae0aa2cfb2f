package config

import "time"

const defaultPort = 8080

var defaultDB = DB{
	Host: "127.0.0.1",
	Port: "5432",
	User: "myuser",
	Pass: "mypassword",
	Name: "test_db",
}

var defaultDispatch = Dispatch{
	RequestTTL:       24 * time.Hour,
	NearbyLimit:      50,
	OperationTimeout: 3 * time.Second,
	TxIsolation:      "read_committed",
}

var defaultGeocoder = Geocoder{
	MaxAttempts: 4,
	BaseDelay:   150 * time.Millisecond,
	MaxDelay:    2 * time.Second,
}

var defaultKafka = Kafka{
	GroupID:     "service-dispatch",
	OrdersTopic: "orders.events",
	EventsTopic: "dispatch.events",
}

var defaultRateLimit = RateLimit{
	Enabled: true,
	Rate:    10,
	Burst:   20,
	TTL:     10 * time.Minute,
	MaxKeys: 10000,
}

var defaultLog = Log{
	Level:   "info",
	Backend: "slog",
}

var defaultWorker = Worker{
	ExpirySchedule: "@every 1m",
}

// DefaultPort returns the default port.
func DefaultPort() int {
	return defaultPort
}

// DefaultDB returns the default database settings.
func DefaultDB() DB {
	return defaultDB
}

// DefaultDispatch returns the default dispatch settings.
func DefaultDispatch() Dispatch {
	return defaultDispatch
}

// DefaultGeocoder returns the default geocoding gateway settings.
func DefaultGeocoder() Geocoder {
	return defaultGeocoder
}
