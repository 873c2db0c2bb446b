package alert

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"

	"github.com/compostlab/soilmon/internal/model"
)

func batt(v float64) *float64 { return &v }

func TestForwardPostsAlert(t *testing.T) {
	var got model.BatteryAlert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, time.Second)
	err := n.Forward(model.BatteryAlert{Alert: "low_battery", Battery: batt(3.2), Message: "replace soon"})
	require.NoError(t, err)
	require.Equal(t, "low_battery", got.Alert)
	require.Equal(t, 3.2, *got.Battery)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, time.Second)
	a := model.BatteryAlert{Alert: "low_battery"}

	for i := 0; i < 3; i++ {
		require.Error(t, n.Forward(a))
	}
	// Fourth call fails fast without hitting the endpoint.
	err := n.Forward(a)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
}
