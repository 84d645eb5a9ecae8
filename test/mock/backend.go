// Package mock provides test doubles for the flight session service.
// Backend is a fake flight API served over HTTP so integration tests exercise
// the real backend client, including its wire format and error decoding.
package mock

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// Operation names used by CallCount.
const (
	OpSubscriptions = "subscriptions"
	OpRoutes        = "routes"
	OpSearch        = "search"
	OpPassengers    = "passengers"
	OpLinkRoutes    = "link_routes"
)

// Member is a passenger attached to a subscription.
type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Subscription is the backend's subscription record.
type Subscription struct {
	ID                string     `json:"id"`
	PackageName       string     `json:"package_name"`
	TripAllowance     int        `json:"trip_allowance"`
	MemberLimit       *int       `json:"member_limit"`
	AllowedRouteCount *int       `json:"allowed_route_count"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	Expired           bool       `json:"expired"`
	Members           []Member   `json:"members"`
}

// Airport is one end of a route.
type Airport struct {
	Code string `json:"code"`
	Name string `json:"name,omitempty"`
	City string `json:"city,omitempty"`
}

// Route is a linked origin/destination pair.
type Route struct {
	ID          string  `json:"id"`
	Origin      Airport `json:"origin"`
	Destination Airport `json:"destination"`
}

// Point is a departure or arrival.
type Point struct {
	Airport string `json:"airport"`
	Time    string `json:"time"`
}

// Flight is one flight in a search answer.
type Flight struct {
	ID              string `json:"id"`
	AirlineCode     string `json:"airline_code"`
	AirlineName     string `json:"airline_name,omitempty"`
	FlightNumber    string `json:"flight_number"`
	Departure       Point  `json:"departure"`
	Arrival         Point  `json:"arrival"`
	DurationMinutes int    `json:"duration_minutes"`
	Stops           int    `json:"stops"`
	FareClass       string `json:"fare_class"`
}

// Duration is the duration filter of a search body.
type Duration struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// SearchBody is a search request as received by the backend.
type SearchBody struct {
	TripType       string         `json:"trip_type"`
	SubscriptionID string         `json:"subscription_id"`
	Origin         string         `json:"origin"`
	Destination    string         `json:"destination"`
	DepartureDate  string         `json:"departure_date"`
	ReturnDate     string         `json:"return_date,omitempty"`
	Passengers     map[string]int `json:"passengers"`
	Airlines       []string       `json:"airlines,omitempty"`
	MaxTransit     *int           `json:"max_transit,omitempty"`
	TravelClass    string         `json:"travel_class,omitempty"`
	DepartureTimes []string       `json:"departure_times,omitempty"`
	ArrivalTimes   []string       `json:"arrival_times,omitempty"`
	Duration       *Duration      `json:"duration,omitempty"`
}

// Failure is an error answer.
type Failure struct {
	Status  int
	Code    string
	Message string
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	Data  interface{} `json:"data,omitempty"`
	Error *errorBody  `json:"error,omitempty"`
}

// Backend is a configurable fake of the flight API.
// Configure it with the With* methods before the first request.
type Backend struct {
	mu            sync.Mutex
	server        *httptest.Server
	subscriptions []Subscription
	routes        map[string][]Route
	outbound      []Flight
	ret           []Flight
	searchFailure *Failure
	commitFailure *Failure
	searchDelays  []time.Duration
	searches      []SearchBody
	linked        map[string][]string
	calls         map[string]int
}

// NewBackend starts a fake backend. It is closed when the test ends.
func NewBackend(t interface{ Cleanup(func()) }) *Backend {
	b := &Backend{
		routes: make(map[string][]Route),
		linked: make(map[string][]string),
		calls:  make(map[string]int),
	}

	e := echo.New()
	e.HideBanner = true
	e.GET("/subscriptions", b.listSubscriptions)
	e.GET("/subscriptions/:id/routes", b.listRoutes)
	e.POST("/subscriptions/:id/routes", b.link(OpLinkRoutes, "route_ids"))
	e.POST("/subscriptions/:id/passengers", b.link(OpPassengers, "passenger_ids"))
	e.POST("/flights/search", b.search)

	b.server = httptest.NewServer(e)
	t.Cleanup(b.server.Close)
	return b
}

// URL returns the API root to configure the backend client with.
func (b *Backend) URL() string {
	return b.server.URL
}

// WithSubscriptions sets the subscription list.
func (b *Backend) WithSubscriptions(subs ...Subscription) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscriptions = subs
	return b
}

// WithRoutes sets the routes linked to a subscription.
func (b *Backend) WithRoutes(subscriptionID string, routes ...Route) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[subscriptionID] = routes
	return b
}

// WithFlights sets the search answer. An empty answer is sent as "no flights found".
func (b *Backend) WithFlights(outbound, ret []Flight) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.outbound, b.ret = outbound, ret
	return b
}

// WithSearchFailure makes searches fail; nil restores success.
func (b *Backend) WithSearchFailure(f *Failure) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.searchFailure = f
	return b
}

// WithCommitFailure makes passenger and route links fail; nil restores success.
func (b *Backend) WithCommitFailure(f *Failure) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commitFailure = f
	return b
}

// WithSearchDelays delays the n-th search by delays[n]. Searches past the end are not delayed.
func (b *Backend) WithSearchDelays(delays ...time.Duration) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.searchDelays = delays
	return b
}

// CallCount returns how many requests reached op.
func (b *Backend) CallCount(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// Searches returns the search bodies received so far.
func (b *Backend) Searches() []SearchBody {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]SearchBody(nil), b.searches...)
}

// LastSearch returns the latest search body.
func (b *Backend) LastSearch() SearchBody {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.searches) == 0 {
		return SearchBody{}
	}
	return b.searches[len(b.searches)-1]
}

// Linked returns the IDs committed to a subscription for op.
func (b *Backend) Linked(op, subscriptionID string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.linked[op+":"+subscriptionID]...)
}

func (b *Backend) listSubscriptions(c echo.Context) error {
	b.mu.Lock()
	b.calls[OpSubscriptions]++
	subs := b.subscriptions
	b.mu.Unlock()

	if subs == nil {
		subs = []Subscription{}
	}
	return c.JSON(http.StatusOK, envelope{Data: subs})
}

func (b *Backend) listRoutes(c echo.Context) error {
	b.mu.Lock()
	b.calls[OpRoutes]++
	routes, ok := b.routes[c.Param("id")]
	b.mu.Unlock()

	if !ok {
		return fail(c, &Failure{Status: http.StatusNotFound, Code: "subscription_not_found", Message: "Subscription not found"})
	}
	return c.JSON(http.StatusOK, envelope{Data: routes})
}

func (b *Backend) link(op, field string) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body map[string][]string
		if err := c.Bind(&body); err != nil {
			return fail(c, &Failure{Status: http.StatusBadRequest, Code: "bad_request", Message: err.Error()})
		}

		b.mu.Lock()
		defer b.mu.Unlock()

		b.calls[op]++
		if b.commitFailure != nil {
			return fail(c, b.commitFailure)
		}
		key := op + ":" + c.Param("id")
		b.linked[key] = append(b.linked[key], body[field]...)
		return c.JSON(http.StatusOK, envelope{Data: map[string]int{"linked": len(body[field])}})
	}
}

func (b *Backend) search(c echo.Context) error {
	var body SearchBody
	if err := c.Bind(&body); err != nil {
		return fail(c, &Failure{Status: http.StatusBadRequest, Code: "bad_request", Message: err.Error()})
	}

	b.mu.Lock()
	n := b.calls[OpSearch]
	b.calls[OpSearch]++
	b.searches = append(b.searches, body)
	var delay time.Duration
	if n < len(b.searchDelays) {
		delay = b.searchDelays[n]
	}
	failure := b.searchFailure
	outbound, ret := b.outbound, b.ret
	b.mu.Unlock()

	if delay > 0 {
		select {
		case <-c.Request().Context().Done():
			return c.Request().Context().Err()
		case <-time.After(delay):
		}
	}

	if failure != nil {
		return fail(c, failure)
	}
	if len(outbound) == 0 && len(ret) == 0 {
		return fail(c, &Failure{Status: http.StatusNotFound, Code: "no_flights_found", Message: "No flights found"})
	}
	if body.TripType != "round_trip" {
		ret = nil
	}
	return c.JSON(http.StatusOK, envelope{Data: map[string][]Flight{"outbound": outbound, "return": ret}})
}

func fail(c echo.Context, f *Failure) error {
	return c.JSON(f.Status, envelope{Error: &errorBody{Code: f.Code, Message: f.Message}})
}

// SampleFlights builds count flights two hours apart starting at 08:00 on date.
func SampleFlights(carrier, origin, destination, date string, count int) []Flight {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic("invalid date: " + err.Error())
	}

	flights := make([]Flight, count)
	for i := 0; i < count; i++ {
		dep := day.Add(8*time.Hour + time.Duration(i*2)*time.Hour)
		duration := 150 + i*30
		flights[i] = Flight{
			ID:              carrier + "-" + origin + "-" + strconv.Itoa(i+1),
			AirlineCode:     carrier,
			FlightNumber:    carrier + strconv.Itoa(100+i),
			Departure:       Point{Airport: origin, Time: dep.Format(time.RFC3339)},
			Arrival:         Point{Airport: destination, Time: dep.Add(time.Duration(duration) * time.Minute).Format(time.RFC3339)},
			DurationMinutes: duration,
			Stops:           i % 2,
			FareClass:       "Y",
		}
	}
	return flights
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int {
	return &n
}
