//go:build integration

package mqtt

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evrange/test/util"
)

func TestResponder_Mosquitto(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	broker, cleanup, err := util.StartMosquitto(ctx)
	if err != nil {
		t.Skipf("mosquitto container unavailable: %v", err)
	}
	defer cleanup()

	r, err := NewResponder(Config{Broker: broker, ClientID: "responder", QoS: map[string]byte{"request": 1, "response": 1}}, estimatorHandler)
	require.NoError(t, err)
	defer r.Disconnect()

	got := make(chan Response, 1)
	cli := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("vehicle"))
	tok := cli.Connect()
	require.True(t, tok.WaitTimeout(5*time.Second))
	require.NoError(t, tok.Error())
	defer cli.Disconnect(100)

	sub := cli.Subscribe("evrange/vehicles/car-1/estimate/response", 1, func(_ paho.Client, m paho.Message) {
		var resp Response
		if err := json.Unmarshal(m.Payload(), &resp); err == nil {
			got <- resp
		}
	})
	require.True(t, sub.WaitTimeout(5*time.Second))
	require.NoError(t, sub.Error())

	// The responder subscribes from its OnConnect callback; retry until it answers.
	payload := `{"request_id":"it","model":"degradation","params":{"state_of_charge":80,"battery_capacity_kwh":60}}`
	deadline := time.After(20 * time.Second)
	for {
		cli.Publish("evrange/vehicles/car-1/estimate/request", 1, false, payload).Wait()
		select {
		case resp := <-got:
			require.Empty(t, resp.Error)
			require.NotNil(t, resp.Estimate)
			require.Equal(t, "it", resp.RequestID)
			require.Greater(t, resp.Estimate.Range, 0.0)
			return
		case <-time.After(500 * time.Millisecond):
		case <-deadline:
			t.Fatalf("no response from responder")
		}
	}
}
