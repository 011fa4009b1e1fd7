package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "redis")

const volunteerGeoKey = "volunteer:locations"

// Client wraps the Redis connection.
type Client struct {
	rdb *goredis.Client
}

// NewClient connects to Redis with retry.
func NewClient(addr string) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	for i := 0; i < 20; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rdb.Ping(ctx).Err(); err == nil {
			cancel()
			log.Info("connected to Redis")
			return &Client{rdb: rdb}, nil
		}
		cancel()
		log.Infof("waiting for Redis... (%d/20)", i+1)
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("redis: failed to connect after 20 attempts")
}

// SetVolunteerLocation stores a volunteer's position in a Redis GEO set.
func (c *Client) SetVolunteerLocation(ctx context.Context, volunteerID string, lat, lng float64) error {
	return c.rdb.GeoAdd(ctx, volunteerGeoKey, &goredis.GeoLocation{
		Name:      volunteerID,
		Longitude: lng,
		Latitude:  lat,
	}).Err()
}

// GetNearbyVolunteers returns volunteer IDs within radiusKm of (lat,lng),
// nearest first.
func (c *Client) GetNearbyVolunteers(ctx context.Context, lat, lng, radiusKm float64, count int) ([]string, error) {
	res, err := c.rdb.GeoSearch(ctx, volunteerGeoKey, &goredis.GeoSearchQuery{
		Longitude:  lng,
		Latitude:   lat,
		Radius:     radiusKm,
		RadiusUnit: "km",
		Count:      count,
		Sort:       "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RemoveVolunteerLocation removes a volunteer from the GEO set
// (e.g. when they go unavailable).
func (c *Client) RemoveVolunteerLocation(ctx context.Context, volunteerID string) error {
	return c.rdb.ZRem(ctx, volunteerGeoKey, volunteerID).Err()
}

// CacheRequestStatus stores a help-request snapshot in a hash with TTL.
func (c *Client) CacheRequestStatus(ctx context.Context, requestID string, fields map[string]string) error {
	key := "request:" + requestID
	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, 24*time.Hour)
	_, err := pipe.Exec(ctx)
	return err
}

// GetCachedRequestStatus retrieves a cached help-request snapshot.
func (c *Client) GetCachedRequestStatus(ctx context.Context, requestID string) (map[string]string, error) {
	return c.rdb.HGetAll(ctx, "request:"+requestID).Result()
}

// Close tears down the Redis connection.
func (c *Client) Close() error { return c.rdb.Close() }
