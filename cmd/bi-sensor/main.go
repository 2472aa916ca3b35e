// Command bi-sensor exposes GPIO inputs as BACnet Binary Input objects and
// publishes their change-of-value notifications to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/bi-sensor/internal/bacnet"
	"github.com/sweeney/bi-sensor/internal/binaryinput"
	"github.com/sweeney/bi-sensor/internal/config"
	"github.com/sweeney/bi-sensor/internal/gpio"
	"github.com/sweeney/bi-sensor/internal/logic"
	"github.com/sweeney/bi-sensor/internal/mqtt"
	"github.com/sweeney/bi-sensor/internal/status"
	"github.com/sweeney/bi-sensor/internal/web"
)

const defaultBroker = "tcp://localhost:1883"

// writeQueue bounds the write events waiting for the loop goroutine.
const writeQueue = 64

type options struct {
	configFile string
	poll       time.Duration
	debounce   time.Duration
	broker     string
	heartbeat  time.Duration
	httpAddr   string
	payload    string
	printState bool
}

func main() {
	var o options
	flag.StringVar(&o.configFile, "config", "", "YAML provisioning file (empty uses the BI environment variable)")
	flag.DurationVar(&o.poll, "poll", 100*time.Millisecond, "GPIO polling interval")
	flag.DurationVar(&o.debounce, "debounce", 250*time.Millisecond, "Debounce duration")
	flag.StringVar(&o.broker, "broker", "", "MQTT broker address (overrides mqtt.broker)")
	flag.DurationVar(&o.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&o.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	flag.StringVar(&o.payload, "payload", "", `COV and write payload format, "json" or "cbor" (overrides mqtt.payload)`)
	flag.BoolVar(&o.printState, "print-state", false, "Print current object state and exit")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")

	flag.Parse()

	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if err := run(o); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(o options) error {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return err
	}
	count, err := cfg.ResolveCount(os.Getenv)
	if err != nil {
		return err
	}

	var objOpts []binaryinput.Option
	if cfg.BinaryInputs.StrictDataTypes {
		objOpts = append(objOpts, binaryinput.WithStrictDataTypes())
	}
	object := binaryinput.New(count, objOpts...)
	if err := cfg.Apply(object); err != nil {
		return err
	}

	inputs := cfg.Inputs()
	var reader gpio.Reader
	if len(inputs) > 0 {
		chip := cfg.GPIO.Chip
		if chip == "" {
			chip = gpio.DefaultChip
		}
		r, err := gpio.NewRealReader(chip, cfg.Pins())
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		defer r.Close()
		reader = r
	}

	if o.printState {
		if reader != nil {
			levels, err := reader.Read()
			if err != nil {
				return fmt.Errorf("read gpio: %w", err)
			}
			applyLevels(object, inputs, levels)
		}
		printState(object)
		return nil
	}

	broker := firstNonEmpty(o.broker, cfg.MQTT.Broker, defaultBroker)
	format, err := mqtt.ParseFormat(firstNonEmpty(o.payload, cfg.MQTT.Payload))
	if err != nil {
		return err
	}

	publisher, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:     broker,
		ClientID:   cfg.MQTT.ClientID,
		Format:     format,
		BufferSize: cfg.MQTT.BufferSize,
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      o.poll.Milliseconds(),
		DebounceMs:  o.debounce.Milliseconds(),
		HeartbeatMs: o.heartbeat.Milliseconds(),
		Broker:      broker,
		HTTPPort:    o.httpAddr,
		Payload:     format.String(),
		ConfigFile:  o.configFile,
		Instances:   count,
	}, object)
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.SetMQTTConnected(publisher.IsConnected())

	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		log.WithError(err).Warn("failed to publish startup event")
	} else {
		log.Info("published startup event")
	}

	writes := make(chan []binaryinput.Event, writeQueue)
	if o.httpAddr != "" {
		srv := web.New(o.httpAddr, tracker, object, func(events []binaryinput.Event) {
			select {
			case writes <- events:
			default:
				log.WithField("events", len(events)).Warn("write queue full, dropping write events")
			}
		})
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.WithField("addr", o.httpAddr).Info("http status server listening")
	}

	log.WithFields(log.Fields{
		"poll":      o.poll,
		"debounce":  o.debounce,
		"broker":    broker,
		"heartbeat": o.heartbeat,
		"instances": count,
		"inputs":    len(inputs),
		"payload":   format,
	}).Info("started")

	ticker := time.NewTicker(o.poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(loopDeps{
		reader:     reader,
		inputs:     inputs,
		object:     object,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		debounce:   o.debounce,
		heartbeat:  o.heartbeat,
		now:        time.Now,
	}, ticker.C, writes, sigCh)
}

// loopDeps is everything runLoop drives. reader is nil when no instance
// has a GPIO pin.
type loopDeps struct {
	reader     gpio.Reader
	inputs     []config.Input
	object     *binaryinput.Object
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	debounce   time.Duration
	heartbeat  time.Duration
	now        func() time.Time
}

func runLoop(d loopDeps, tick <-chan time.Time, writes <-chan []binaryinput.Event, sig <-chan os.Signal) error {
	startTime := d.now()
	detector := logic.NewDetector(len(d.inputs), d.debounce, startTime)

	// Every instance is published once the inputs are baselined. The flag
	// stays set until one full pass succeeds.
	seeded := false
	publishAll := false

	for {
		select {
		case s := <-sig:
			log.WithField("signal", s).Info("shutting down")
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			d.refreshConnected()
			event := mqtt.SystemEvent{
				Timestamp:  d.now(),
				Event:      "SHUTDOWN",
				Reason:     signalName,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(d.tracker.Snapshot(), "SHUTDOWN", signalName),
			}
			if err := d.publisher.PublishSystem(event); err != nil {
				log.WithError(err).Warn("failed to publish shutdown event")
			} else {
				log.Info("published shutdown event")
			}
			return nil

		case events := <-writes:
			for _, ev := range events {
				err := d.publisher.PublishEvent(ev)
				d.tracker.RecordWrite(err)
				if err != nil {
					log.WithError(err).WithFields(log.Fields{
						"instance": ev.Instance,
						"property": ev.Property,
					}).Warn("write event publish error")
				}
			}

		case <-tick:
			t := d.now()
			readOK := true
			var levels []bool
			if d.reader != nil {
				var err error
				levels, err = d.reader.Read()
				if err != nil {
					// Inputs keep their last state; writes and heartbeats still run.
					log.WithError(err).Warn("gpio read error")
					readOK = false
				}
			}

			if readOK {
				transitions := detector.Process(logic.Input{Values: levels, Time: t})

				if detector.IsBaselined() && !seeded {
					for i, st := range detector.CurrentState() {
						d.object.UpdateInput(d.inputs[i].Instance, stateToPV(st))
					}
					seeded = true
					publishAll = true
					log.WithField("inputs", len(d.inputs)).Info("inputs baselined")
				}

				for _, tr := range transitions {
					in := d.inputs[tr.Channel]
					log.WithFields(log.Fields{
						"instance": in.Instance,
						"pin":      in.Pin,
						"from":     tr.From,
						"to":       tr.To,
					}).Info("input transition")
					d.object.UpdateInput(in.Instance, stateToPV(tr.To))
				}
			}

			if !seeded {
				// Still waiting for baseline
				d.tracker.Update(false, detector.Counts())
				continue
			}

			if d.publishCOV(t, publishAll) {
				publishAll = false
			}

			// Check for heartbeat
			if hb := detector.CheckHeartbeat(t, d.heartbeat); hb != nil {
				log.WithFields(log.Fields{
					"uptime": hb.Uptime,
					"counts": hb.Counts,
				}).Info("heartbeat")

				d.refreshConnected()
				// Refresh network info for heartbeat
				if net := readNetworkInfo(); net != nil {
					d.tracker.SetNetwork(net)
				}
				d.tracker.Update(true, hb.Counts)
				hbEvent := mqtt.SystemEvent{
					Timestamp:  hb.Timestamp,
					Event:      "HEARTBEAT",
					RawPayload: status.FormatStatusEvent(d.tracker.Snapshot(), "HEARTBEAT", ""),
				}
				if err := d.publisher.PublishSystem(hbEvent); err != nil {
					log.WithError(err).Warn("heartbeat publish error")
				}
			}

			// Update status tracker for HTTP consumers
			d.tracker.Update(true, detector.Counts())
			d.refreshConnected()
		}
	}
}

// publishCOV sends a notification for every changed instance, or for every
// instance when all is set. The changed flag is cleared only after a
// successful publish of the current values. It reports whether every
// attempted publish succeeded.
func (d loopDeps) publishCOV(t time.Time, all bool) bool {
	ok := true
	for i := uint32(0); i < d.object.Count(); i++ {
		id, _ := d.object.IndexToInstance(i)
		if !all && !d.object.Changed(id) {
			continue
		}
		values, found := d.object.EncodeValueList(id)
		if !found {
			continue
		}
		err := d.publisher.PublishCOV(mqtt.COVNotification{
			Timestamp: t,
			Instance:  id,
			Values:    values,
		})
		if errors.Is(err, mqtt.ErrBuffered) {
			// Queued, not delivered: keep the change pending.
			log.WithField("instance", id).Debug("cov buffered")
			ok = false
			continue
		}
		d.tracker.RecordCOV(err)
		if err != nil {
			log.WithError(err).WithField("instance", id).Warn("cov publish error")
			ok = false
			continue
		}
		d.object.ClearChangedIf(id, values)
	}
	return ok
}

func (d loopDeps) refreshConnected() {
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
}

func stateToPV(s logic.State) bacnet.BinaryPV {
	if s == logic.StateActive {
		return bacnet.BinaryActive
	}
	return bacnet.BinaryInactive
}

func applyLevels(object *binaryinput.Object, inputs []config.Input, levels []bool) {
	for i, in := range inputs {
		pv := bacnet.BinaryInactive
		if i < len(levels) && levels[i] {
			pv = bacnet.BinaryActive
		}
		object.UpdateInput(in.Instance, pv)
	}
}

func printState(object *binaryinput.Object) {
	for _, in := range object.Snapshot() {
		fmt.Printf("BI:%d %q present-value=%s polarity=%s out-of-service=%t\n",
			in.Instance, in.Name, in.PresentValue, in.Polarity, in.OutOfService)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
