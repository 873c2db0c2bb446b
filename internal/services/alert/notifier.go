// Package alert forwards device battery alerts to a configured webhook. The
// circuit breaker keeps a dead or slow endpoint from dragging down the
// ingest path when the device is alerting in a loop.
package alert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/compostlab/soilmon/internal/model"
)

type Notifier struct {
	url  string
	http *http.Client
	cb   *gobreaker.CircuitBreaker
}

// NewNotifier builds a webhook notifier. The breaker opens after three
// consecutive failures and probes again after thirty seconds.
func NewNotifier(url string, timeout time.Duration) *Notifier {
	return &Notifier{
		url:  url,
		http: &http.Client{Timeout: timeout},
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:     "alert-webhook",
			Interval: time.Minute,
			Timeout:  30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 3
			},
		}),
	}
}

// Forward POSTs the alert to the webhook through the breaker.
func (n *Notifier) Forward(a model.BatteryAlert) error {
	_, err := n.cb.Execute(func() (any, error) {
		body, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		res, err := n.http.Post(n.url, "application/json", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		defer res.Body.Close()
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			return nil, fmt.Errorf("POST %s -> %s", n.url, res.Status)
		}
		return nil, nil
	})
	return err
}
