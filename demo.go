package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Cepat-Kilat-Teknologi/device-heartbeat/internal/devicecache"
)

// demo drives the device cache directly, outside the HTTP server
type demo struct {
	cache *devicecache.Cache
	log   *zap.Logger
}

// demoDevice describes one seeded device
type demoDevice struct {
	id       string
	mac      string
	ip       string
	lastPing int32
	beats    int // heartbeats after the initial add
}

var demoFleet = []demoDevice{
	{"prod_server_001", "00:11:22:33:44:01", "192.168.1.101", 12, 9},
	{"prod_server_002", "00:11:22:33:44:02", "192.168.1.102", 15, 7},
	{"prod_server_003", "00:11:22:33:44:03", "192.168.1.103", 11, 5},
	{"test_device_001", "aa:bb:cc:dd:ee:01", "10.0.0.11", 40, 1},
	{"test_device_002", "aa:bb:cc:dd:ee:02", "10.0.0.12", 38, 0},
	{"dev_workstation", "de:ad:be:ef:00:01", "172.16.0.5", 3, 2},
}

func (d *demo) seed() ([]devicecache.Key, error) {
	keys := make([]devicecache.Key, 0, len(demoFleet))
	for _, dev := range demoFleet {
		key, err := d.cache.Add(dev.id, dev.mac, dev.ip, devicecache.Int32(dev.lastPing))
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", dev.id, err)
		}
		for i := 0; i < dev.beats; i++ {
			d.cache.Heartbeat(key, dev.id, dev.ip, devicecache.Int32(dev.lastPing))
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (d *demo) logItems(msg string, items []devicecache.Item) {
	d.log.Info(msg, zap.Int("count", len(items)))
	for _, it := range items {
		d.log.Info("  device",
			zap.String("key", it.Key.String()),
			zap.String("device_id", it.Entry.DeviceID),
			zap.String("ip", it.Entry.IP),
			zap.Uint64("heartbeats", it.Entry.HeartbeatCount))
	}
}

func (d *demo) simple(_ context.Context) error {
	var keys []devicecache.Key
	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("device_%03d", i)
		mac := fmt.Sprintf("00:11:22:33:44:%02d", i)
		key, err := d.cache.Add(id, mac, fmt.Sprintf("192.168.1.%d", 100+i), devicecache.Int32(80))
		if err != nil {
			return err
		}
		keys = append(keys, key)
	}

	for _, k := range keys {
		if e, ok := d.cache.Get(k); ok {
			d.log.Info("Retrieved device",
				zap.String("key", k.String()),
				zap.String("device_id", e.DeviceID),
				zap.String("ip", e.IP),
				zap.Uint64("heartbeats", e.HeartbeatCount))
		}
	}

	for _, k := range keys[:3] {
		e, _ := d.cache.Update(k, "10.10.0.1", devicecache.Int32(25))
		d.log.Info("Updated device", zap.String("key", k.String()), zap.Uint64("heartbeats", e.HeartbeatCount))
	}

	if _, ok := d.cache.Remove(keys[4]); ok {
		d.log.Info("Removed device", zap.String("key", keys[4].String()))
	}
	d.log.Info("Cache size", zap.Int("devices", d.cache.Len()))
	return nil
}

func (d *demo) collect(_ context.Context) error {
	if _, err := d.seed(); err != nil {
		return err
	}
	d.logItems("Production devices", d.cache.CollectByDevicePattern("prod"))
	d.logItems("Devices on 192.168.1.0/24", d.cache.CollectByIPPattern("192.168.1."))
	d.logItems("Devices with at least 5 heartbeats", d.cache.CollectWithMinHeartbeats(5))
	d.logItems("Devices seen within a minute", d.cache.CollectNewerThan(time.Minute))
	d.logItems("Devices with a slow ping", d.cache.CollectMatching(func(_ devicecache.Key, e devicecache.Entry) bool {
		return e.LastPing != nil && *e.LastPing > 30
	}))
	return nil
}

func (d *demo) iterate(_ context.Context) error {
	if _, err := d.seed(); err != nil {
		return err
	}

	total := uint64(0)
	d.cache.Range(func(_ devicecache.Key, e devicecache.Entry) bool {
		total += e.HeartbeatCount
		return true
	})
	d.log.Info("Walked cache", zap.Int("devices", d.cache.Len()), zap.Uint64("heartbeats", total))

	// test devices are moved to a quarantine subnet, idle ones dropped
	visited := d.cache.UpdateAll(func(_ devicecache.Key, e *devicecache.Entry) bool {
		if e.HeartbeatCount <= 1 {
			return false
		}
		if len(e.DeviceID) > 4 && e.DeviceID[:4] == "test" {
			e.IP = "10.99.0.1"
		}
		return true
	})
	d.log.Info("Bulk update", zap.Int("visited", visited), zap.Int("remaining", d.cache.Len()))

	checked, removed := d.cache.IterateAndRemove(func(_ devicecache.Key, e devicecache.Entry) bool {
		return e.LastPing != nil && *e.LastPing < 5
	})
	d.log.Info("Removed fast pingers", zap.Int("checked", checked), zap.Int("removed", removed))

	for _, it := range d.cache.Snapshot() {
		d.log.Info("  remaining", zap.String("device_id", it.Entry.DeviceID), zap.String("ip", it.Entry.IP))
	}
	return nil
}

func (d *demo) remove(_ context.Context) error {
	if _, err := d.seed(); err != nil {
		return err
	}
	d.log.Info("Removed by IP pattern", zap.Int("removed", d.cache.RemoveByIPPattern("172.16.")))
	d.log.Info("Removed by device pattern", zap.Int("removed", d.cache.RemoveByDevicePattern("test_device_002")))
	d.log.Info("Removed low heartbeat devices", zap.Int("removed", d.cache.RemoveWithLowHeartbeats(3)))

	minBeats := uint64(7)
	d.log.Info("Removed by criteria", zap.Int("removed", d.cache.RemoveByCriteria(devicecache.Criteria{
		MinHeartbeats: &minBeats,
		KeyPatterns:   []string{"44:03"},
	})))
	d.log.Info("Removed stale devices", zap.Int("removed", d.cache.CleanupStale(time.Hour)))
	d.logItems("Remaining devices", d.cache.Snapshot())
	return nil
}

// Producer, updater and collector counts of the concurrent demo
const (
	demoProducers       = 4
	demoDevicesPerProd  = 25
	demoUpdateRounds    = 10
	demoCollectorRounds = 20
)

func (d *demo) concurrent(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	g, ctx := errgroup.WithContext(ctx)

	for p := 0; p < demoProducers; p++ {
		g.Go(func() error {
			for i := 0; i < demoDevicesPerProd; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				mac := fmt.Sprintf("02:00:00:00:%02x:%02x", p, i)
				id := fmt.Sprintf("worker_%d_device_%03d", p, i)
				if _, err := d.cache.Add(id, mac, fmt.Sprintf("10.%d.0.%d", p, i), devicecache.Int32(int32(i))); err != nil {
					return err
				}
			}
			return nil
		})
	}

	for range 2 {
		g.Go(func() error {
			for round := 0; round < demoUpdateRounds; round++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				d.cache.UpdateAll(func(_ devicecache.Key, e *devicecache.Entry) bool {
					e.HeartbeatCount++
					return true
				})
			}
			return nil
		})
	}

	g.Go(func() error {
		for round := 0; round < demoCollectorRounds; round++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			busy := d.cache.CollectWithMinHeartbeats(5)
			d.log.Debug("Collector round", zap.Int("round", round), zap.Int("busy", len(busy)))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	d.log.Info("Concurrent demo finished",
		zap.Int("devices", d.cache.Len()),
		zap.Int("expected", demoProducers*demoDevicesPerProd))
	return nil
}
