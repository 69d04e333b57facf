// Package ratelimit provides per-IP rate limiting for the preview server,
// with background eviction of idle entries and a cap on tracked IPs.
//
// It is in-memory and single-instance. It does not protect against
// distributed floods; put an upstream limiter in front for that.
package ratelimit
