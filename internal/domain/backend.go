package domain

import "context"

//go:generate mockgen -source=backend.go -destination=mock_backend.go -package=domain

// FlightBackend is the remote flight/subscription API the session consumes.
// Implementations must be safe for concurrent use.
type FlightBackend interface {
	// FetchSubscriptions lists the user's subscriptions.
	FetchSubscriptions(ctx context.Context) ([]Subscription, error)

	// FetchLinkedRoutes lists the origin/destination pairs permitted by a subscription.
	FetchLinkedRoutes(ctx context.Context, subscriptionID string) ([]RoutePair, error)

	// SearchFlights runs a search. It fails with an error wrapping ErrNoResults
	// when nothing matches.
	SearchFlights(ctx context.Context, req SearchRequest) (SearchLegs, error)

	// AddPassengersToSubscription commits passenger attachments.
	AddPassengersToSubscription(ctx context.Context, subscriptionID string, passengerIDs []string) error

	// LinkRoutesToSubscription commits route attachments.
	LinkRoutesToSubscription(ctx context.Context, subscriptionID string, routeIDs []string) error
}
