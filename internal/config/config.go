package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Get returns the trimmed environment value for key, or fallback when unset or blank.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// GetInt parses an integer environment value. Malformed values fall back with a log line.
func GetInt(key string, fallback int) int {
	v := Get(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: key=%s value=%q is not an integer, using %d", key, v, fallback)
		return fallback
	}
	return n
}

// GetDuration parses a Go duration environment value such as "1500ms".
func GetDuration(key string, fallback time.Duration) time.Duration {
	v := Get(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("config: key=%s value=%q is not a duration, using %s", key, v, fallback)
		return fallback
	}
	return d
}
