package grpcclient

import "time"

const (
	DefaultKeepaliveTime    = 10 * time.Second
	DefaultKeepaliveTimeout = 3 * time.Second

	// CheckTimeout bounds one health probe
	CheckTimeout = 2 * time.Second
)
