package main

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Cepat-Kilat-Teknologi/device-heartbeat/internal/devicecache"
)

// errInvalidHeartbeat wraps every heartbeat validation failure
var errInvalidHeartbeat = errors.New("invalid heartbeat")

func invalidHeartbeat(msg string) error {
	return fmt.Errorf("%w: %s", errInvalidHeartbeat, msg)
}

// queryParam returns the first value of name, matching the parameter name
// case-insensitively so ID, id and Id are all accepted.
func queryParam(q url.Values, name string) (string, bool) {
	if v, ok := q[name]; ok && len(v) > 0 {
		return strings.TrimSpace(v[0]), true
	}
	for k, v := range q {
		if strings.EqualFold(k, name) && len(v) > 0 {
			return strings.TrimSpace(v[0]), true
		}
	}
	return "", false
}

// maxMACLength bounds the mac parameter when it is not used as the key
const maxMACLength = 17

// parseHeartbeatParams validates a heartbeat query. In MAC key mode the mac
// parameter becomes the cache key; in id mode the id does and mac is only
// sanity checked. Nothing is written anywhere until every parameter has been
// accepted.
func parseHeartbeatParams(q url.Values, mode devicecache.KeyMode) (HeartbeatParams, error) {
	var p HeartbeatParams

	// Validate device ID
	idStr, _ := queryParam(q, "id")
	id, err := strconv.ParseInt(idStr, 10, 32)
	if err != nil || id <= 0 {
		return p, invalidHeartbeat(ErrInvalidDeviceID)
	}
	p.ID = id

	// Validate MAC and derive cache key
	mac, _ := queryParam(q, "mac")
	if mode == devicecache.KeyModeDeviceID {
		if mac == "" || len(mac) > maxMACLength {
			return p, invalidHeartbeat(ErrInvalidMAC)
		}
		p.Key, err = devicecache.ParseDeviceID(strconv.FormatInt(id, 10))
	} else {
		p.Key, err = devicecache.ParseMAC(mac)
	}
	if err != nil {
		return p, invalidHeartbeat(ErrInvalidMAC)
	}
	p.MAC = mac

	// Validate IP
	ip, _ := queryParam(q, "ip")
	if ip == "" {
		return p, invalidHeartbeat(ErrInvalidIP)
	}
	p.IP = ip

	// Optional last ping
	if lpStr, ok := queryParam(q, "lp"); ok && lpStr != "" {
		lp, err := strconv.ParseInt(lpStr, 10, 32)
		if err != nil {
			return p, invalidHeartbeat(ErrInvalidLastPing)
		}
		v := int32(lp)
		p.LastPing = &v
	}

	// Optional timestamp within range
	if tsStr, ok := queryParam(q, "ts"); ok && tsStr != "" {
		ts, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil || !validHeartbeatTimestamp(ts) {
			return p, invalidHeartbeat(ErrInvalidTimestamp)
		}
		p.Timestamp = &ts
	}

	return p, nil
}

// validHeartbeatTimestamp reports whether ts lies within the accepted range
func validHeartbeatTimestamp(ts int64) bool {
	return ts >= MinHeartbeatTimestamp && ts <= MaxHeartbeatTimestamp
}

// timestampISO renders a Unix timestamp as RFC 3339 in UTC
func timestampISO(ts *int64) string {
	if ts == nil {
		return ""
	}
	return time.Unix(*ts, 0).UTC().Format(time.RFC3339)
}
