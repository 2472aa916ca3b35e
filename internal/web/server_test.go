package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/bi-sensor/internal/bacnet"
	"github.com/sweeney/bi-sensor/internal/binaryinput"
	"github.com/sweeney/bi-sensor/internal/logic"
	"github.com/sweeney/bi-sensor/internal/status"
)

type testEnv struct {
	ts      *httptest.Server
	tracker *status.Tracker
	object  *binaryinput.Object

	mu     sync.Mutex
	writes [][]binaryinput.Event
}

// forwarded returns the event batches passed to the write callback.
func (e *testEnv) forwarded() [][]binaryinput.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]binaryinput.Event(nil), e.writes...)
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		PollMs:      100,
		DebounceMs:  250,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPPort:    ":80",
		Payload:     "json",
		Instances:   2,
	}
	env := &testEnv{object: binaryinput.New(2)}
	env.object.SetName(0, "Boiler CH demand")
	env.tracker = status.NewTracker(start, cfg, env.object)

	srv := New(":0", env.tracker, env.object, func(events []binaryinput.Event) {
		env.mu.Lock()
		env.writes = append(env.writes, events)
		env.mu.Unlock()
	})
	env.ts = httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(env.ts.Close)
	return env
}

func getStatus(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func TestJSONEndpoint(t *testing.T) {
	env := newTestServer(t)
	env.tracker.Update(true, []logic.ChannelCounts{{Active: 5, Inactive: 2}})
	env.tracker.SetMQTTConnected(true)

	resp, err := http.Get(env.ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	sj := getStatus(t, env.ts.URL)
	if !sj.Status.Ready {
		t.Error("expected Ready=true")
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q, want tcp://192.168.1.200:1883", sj.Status.MQTT.Broker)
	}
	if len(sj.Status.Channels) != 1 || sj.Status.Channels[0].Active != 5 {
		t.Errorf("Channels: got %+v", sj.Status.Channels)
	}
	if len(sj.Status.Instances) != 2 {
		t.Fatalf("Instances: got %d, want 2", len(sj.Status.Instances))
	}
	if sj.Status.Instances[0].Name != "Boiler CH demand" {
		t.Errorf("instance 0 name: got %q", sj.Status.Instances[0].Name)
	}
	if sj.Status.Instances[1].PresentValue != "INACTIVE" {
		t.Errorf("instance 1 present value: got %q", sj.Status.Instances[1].PresentValue)
	}
	if sj.Status.Config.PollMs != 100 {
		t.Errorf("Config.PollMs: got %d, want 100", sj.Status.Config.PollMs)
	}
}

func TestJSONNetworkInfo(t *testing.T) {
	env := newTestServer(t)
	env.tracker.SetNetwork(&status.NetworkInfo{
		Type:   "wifi",
		IP:     "192.168.1.42",
		Status: "connected",
		SSID:   "MyNet",
	})

	sj := getStatus(t, env.ts.URL)
	if sj.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if sj.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", sj.Status.Network.IP)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	env := newTestServer(t)
	env.object.SetOutOfService(1, true)

	resp, err := http.Get(env.ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	for _, want := range []string{"Boiler CH demand", "BINARY INPUT 1", "out of service", "/objects/1/present-value"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("page should contain %q", want)
		}
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	env := newTestServer(t)

	resp, err := http.Get(env.ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	env := newTestServer(t)

	resp, err := http.Get(env.ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	env := newTestServer(t)

	if getStatus(t, env.ts.URL).Status.Ready {
		t.Error("expected Ready=false initially")
	}

	env.tracker.Update(true, []logic.ChannelCounts{{Active: 1}})
	env.object.UpdateInput(1, bacnet.BinaryActive)

	sj := getStatus(t, env.ts.URL)
	if !sj.Status.Ready {
		t.Error("expected Ready=true after update")
	}
	if sj.Status.Instances[1].PresentValue != "ACTIVE" {
		t.Errorf("instance 1: got %q, want ACTIVE", sj.Status.Instances[1].PresentValue)
	}
	if !sj.Status.Instances[1].Changed {
		t.Error("instance 1 should report a pending COV")
	}
}
