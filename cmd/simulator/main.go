package main

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// Coordinate is a lat/lng pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Fix is the wire shape published on fleet/<device>/fix.
type Fix struct {
	DtTracker string  `json:"dt_tracker"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Speed     float64 `json:"speed"`
	Acc       int     `json:"acc"`
}

// Depot anchors for synthetic routes.
var depots = []Coordinate{
	{Lat: 28.7041, Lng: 77.1025}, // Delhi
	{Lat: 19.0760, Lng: 72.8777}, // Mumbai
	{Lat: 12.9716, Lng: 77.5946}, // Bengaluru
	{Lat: 13.0827, Lng: 80.2707}, // Chennai
	{Lat: 22.5726, Lng: 88.3639}, // Kolkata
	{Lat: 17.3850, Lng: 78.4867}, // Hyderabad
	{Lat: 23.0225, Lng: 72.5714}, // Ahmedabad
	{Lat: 26.9124, Lng: 75.7873}, // Jaipur
}

func jitter(base Coordinate, meters float64) Coordinate {
	latMetersPerDeg := 111320.0
	lngMetersPerDeg := 111320.0 * math.Cos(base.Lat*math.Pi/180)
	dLat := (rand.Float64()*2 - 1) * (meters / latMetersPerDeg)
	dLng := (rand.Float64()*2 - 1) * (meters / lngMetersPerDeg)
	return Coordinate{Lat: base.Lat + dLat, Lng: base.Lng + dLng}
}

func haversineKm(a, b Coordinate) float64 {
	const earthRadiusKm = 6371.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	s := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
}

func lerp(a, b Coordinate, t float64) Coordinate {
	return Coordinate{Lat: a.Lat + (b.Lat-a.Lat)*t, Lng: a.Lng + (b.Lng-a.Lng)*t}
}

// syntheticRoute builds a polyline between two distant depots with
// jittered intermediate waypoints.
func syntheticRoute() []Coordinate {
	start := depots[rand.Intn(len(depots))]
	end := start
	for haversineKm(start, end) < 100 {
		end = depots[rand.Intn(len(depots))]
	}
	const waypoints = 40
	pts := make([]Coordinate, 0, waypoints+2)
	pts = append(pts, jitter(start, 300))
	for i := 1; i <= waypoints; i++ {
		pts = append(pts, jitter(lerp(start, end, float64(i)/float64(waypoints+1)), 800))
	}
	pts = append(pts, jitter(end, 300))
	return pts
}

// vehicle walks a route polyline at a noisy speed, with occasional halts.
type vehicle struct {
	deviceID  string
	route     []Coordinate
	segIndex  int
	segOffset float64 // km into the current segment
	position  Coordinate
	speedKmh  float64
	halted    bool
}

func newVehicle(deviceID string) *vehicle {
	route := syntheticRoute()
	return &vehicle{
		deviceID: deviceID,
		route:    route,
		position: route[0],
		speedKmh: 30 + rand.Float64()*30,
	}
}

func (v *vehicle) step(tickSec float64) {
	if v.halted {
		if rand.Float64() < 0.1 {
			v.halted = false
		}
		return
	}
	if rand.Float64() < 0.02 {
		v.halted = true
		return
	}

	v.speedKmh += (rand.Float64()*2 - 1) * 3
	if v.speedKmh < 20 {
		v.speedKmh = 20
	}
	if v.speedKmh > 85 {
		v.speedKmh = 85
	}

	remKm := v.speedKmh * tickSec / 3600.0
	for remKm > 0 && v.segIndex < len(v.route)-1 {
		a := v.route[v.segIndex]
		b := v.route[v.segIndex+1]
		segLen := haversineKm(a, b)
		left := segLen - v.segOffset
		if remKm >= left {
			v.position = b
			v.segIndex++
			v.segOffset = 0
			remKm -= left
			continue
		}
		v.segOffset += remKm
		v.position = lerp(a, b, v.segOffset/segLen)
		remKm = 0
	}
	if v.segIndex >= len(v.route)-1 {
		// Destination reached, start a fresh route.
		v.route = syntheticRoute()
		v.segIndex = 0
		v.segOffset = 0
		v.position = v.route[0]
	}
}

func (v *vehicle) fix(now time.Time) Fix {
	speed := v.speedKmh
	acc := 1
	if v.halted {
		speed = 0
		acc = 0
	}
	return Fix{
		DtTracker: now.UTC().Format("2006-01-02 15:04:05"),
		Lat:       v.position.Lat,
		Lng:       v.position.Lng,
		Speed:     speed,
		Acc:       acc,
	}
}

func publishFix(client mqtt.Client, deviceID string, fix Fix) {
	data, err := json.Marshal(fix)
	if err != nil {
		log.WithError(err).Error("Failed to marshal fix")
		return
	}
	topic := fmt.Sprintf("fleet/%s/fix", deviceID)
	token := client.Publish(topic, 1, false, data)
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		log.WithError(token.Error()).WithField("device_id", deviceID).Error("Failed to publish fix")
	}
}

func simulateVehicle(client mqtt.Client, v *vehicle, interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for range tick.C {
		v.step(interval.Seconds())
		publishFix(client, v.deviceID, v.fix(time.Now()))
	}
}

func fleetSizeFromEnv() int {
	fleetSize := 10
	if val := os.Getenv("FLEET_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			fleetSize = n
		}
	}
	return fleetSize
}

func main() {
	fleetSize := fleetSizeFromEnv()

	broker := os.Getenv("MQTT_BROKER")
	if broker == "" {
		broker = "tcp://localhost:1883"
	}

	interval := 5 * time.Second
	if v := os.Getenv("SIM_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			interval = time.Duration(n) * time.Second
		}
	}

	opts := mqtt.NewClientOptions().AddBroker(broker).SetClientID("tripwatch-simulator")
	client := mqtt.NewClient(opts)
	if token := client.Connect(); !token.WaitTimeout(10*time.Second) || token.Error() != nil {
		log.WithError(token.Error()).Fatal("MQTT connect failed")
	}

	log.WithFields(log.Fields{
		"fleet_size": fleetSize,
		"broker":     broker,
		"interval":   interval,
	}).Info("Starting fix simulation")

	for i := 0; i < fleetSize; i++ {
		go simulateVehicle(client, newVehicle(fmt.Sprintf("sim-device-%03d", i+1)), interval)
	}

	select {} // Block forever
}
