// Command sse-load holds many /api/events streams open against a running
// board server, triggers refreshes and reports how many frames arrived.
package main

import (
	"bufio"
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/HankJediAssistant/hank-board/internal/consts"
)

const maxBackoff = 5 * time.Second

type counters struct {
	events   atomic.Uint64
	attempts atomic.Uint64
	failures atomic.Uint64
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	i, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return i
}

func main() {
	baseURL := strings.TrimRight(getenv("BOARD_URL", "http://localhost:3456"), "/")
	conns := getenvInt("SSE_CONNECTIONS", 200)
	duration := time.Duration(getenvInt("DURATION_SEC", 60)) * time.Second
	refreshEvery := time.Duration(getenvInt("REFRESH_INTERVAL_MS", 1000)) * time.Millisecond
	bearer := os.Getenv("TEST_BEARER")

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	var c counters
	client := &http.Client{}
	var wg sync.WaitGroup
	wg.Add(conns)
	for range conns {
		go func() {
			defer wg.Done()
			stream(ctx, client, baseURL+"/api/events", &c)
		}()
	}
	go refresh(ctx, client, baseURL+"/api/refresh", bearer, refreshEvery)

	wg.Wait()
	events, attempts, failures := c.events.Load(), c.attempts.Load(), c.failures.Load()
	failureRate := 0.0
	if attempts > 0 {
		failureRate = float64(failures) / float64(attempts)
	}
	log.WithFields(log.Fields{
		"connections":         conns,
		"duration_sec":        int(duration.Seconds()),
		"events_received":     events,
		"connection_failures": failures,
	}).Info("sse load finished")
	if events == 0 || failureRate > 0.01 {
		os.Exit(1)
	}
}

// stream keeps one SSE connection open until ctx ends, reconnecting with
// backoff when it drops.
func stream(ctx context.Context, client *http.Client, url string, c *counters) {
	backoff := time.Second
	for ctx.Err() == nil {
		c.attempts.Add(1)
		if err := readStream(ctx, client, url, c); err == nil || ctx.Err() != nil {
			return
		}
		c.failures.Add(1)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func readStream(ctx context.Context, client *http.Client, url string, c *counters) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &statusError{code: resp.StatusCode}
	}
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), consts.SSEDataPrefix) {
			c.events.Add(1)
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return errStreamClosed
}

func refresh(ctx context.Context, client *http.Client, url, bearer string, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(`{"type":"all"}`))
		if err != nil {
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() == nil {
				log.WithError(err).Warn("refresh failed")
			}
			continue
		}
		resp.Body.Close()
	}
}
