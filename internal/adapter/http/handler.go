// Package http provides the HTTP handler layer for the session API.
// It handles request parsing, validation, response formatting, and error mapping.
package http

import (
	"context"
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/flight-search/flight-session-orchestrator/internal/adapter/backend"
	"github.com/flight-search/flight-session-orchestrator/internal/adapter/http/middleware"
	"github.com/flight-search/flight-session-orchestrator/internal/adapter/http/response"
	"github.com/flight-search/flight-session-orchestrator/internal/domain"
	"github.com/flight-search/flight-session-orchestrator/internal/usecase"
)

// SessionHandler handles HTTP requests for the search session endpoints.
// Every /api/v1 route expects the Session middleware to have run.
type SessionHandler struct {
	sessions *usecase.SessionManager
	log      zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *usecase.SessionManager, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		log:      log,
	}
}

// ListSubscriptions handles GET /api/v1/subscriptions
//
// @Summary List subscriptions
// @Description Fetch the user's subscriptions. Staged quota items are dropped.
// @Tags subscriptions
// @Produce json
// @Param X-Session-ID header string false "Session ID"
// @Success 200 {object} SubscriptionsResponse
// @Failure 502 {object} response.ErrorDetail "Backend error"
// @Router /api/v1/subscriptions [get]
func (h *SessionHandler) ListSubscriptions(c echo.Context) error {
	s := middleware.GetSession(c)

	subs, err := s.LoadSubscriptions(c.Request().Context())
	if err != nil {
		return h.handleError(c, err)
	}
	if subs == nil {
		subs = []domain.Subscription{}
	}

	return response.OK(c, &SubscriptionsResponse{
		Subscriptions: subs,
		Selected:      s.SelectedSubscription(),
	})
}

// SelectSubscription handles PUT /api/v1/session/subscription
//
// @Summary Select subscription
// @Description Select the subscription to search with and load its routes
// @Tags session
// @Accept json
// @Produce json
// @Param request body SelectSubscriptionRequest true "Subscription"
// @Success 200 {object} usecase.RouteSelection
// @Failure 404 {object} response.ErrorDetail "Unknown subscription"
// @Failure 409 {object} response.ErrorDetail "Expired subscription or superseded"
// @Router /api/v1/session/subscription [put]
func (h *SessionHandler) SelectSubscription(c echo.Context) error {
	var req SelectSubscriptionRequest
	if err := c.Bind(&req); err != nil {
		return response.InvalidRequestBody(c)
	}
	if err := req.Validate(); err != nil {
		return h.handleValidationError(c, err)
	}

	s := middleware.GetSession(c)
	if err := s.SelectSubscription(c.Request().Context(), req.SubscriptionID); err != nil {
		return h.handleError(c, err)
	}

	return response.OK(c, s.Catalog().Selection())
}

// ListOrigins handles GET /api/v1/session/routes/origins
//
// @Summary List origins
// @Tags routes
// @Produce json
// @Success 200 {object} AirportsResponse
// @Failure 409 {object} response.ErrorDetail "Routes not loaded"
// @Router /api/v1/session/routes/origins [get]
func (h *SessionHandler) ListOrigins(c echo.Context) error {
	s := middleware.GetSession(c)
	subscriptionID := s.SelectedSubscription()

	origins, err := s.Catalog().OriginsFor(subscriptionID)
	if err != nil {
		return h.handleError(c, err)
	}

	return response.OK(c, &AirportsResponse{
		SubscriptionID: subscriptionID,
		Airports:       nonNilAirports(origins),
	})
}

// ListDestinations handles GET /api/v1/session/routes/destinations
//
// @Summary List destinations
// @Tags routes
// @Produce json
// @Param origin query string true "Origin airport code"
// @Success 200 {object} AirportsResponse
// @Failure 400 {object} response.ErrorDetail "Missing origin"
// @Failure 409 {object} response.ErrorDetail "Routes not loaded"
// @Router /api/v1/session/routes/destinations [get]
func (h *SessionHandler) ListDestinations(c echo.Context) error {
	origin := c.QueryParam("origin")
	if origin == "" {
		return response.ValidationError(c, map[string]string{"origin": "origin is required"})
	}

	s := middleware.GetSession(c)
	subscriptionID := s.SelectedSubscription()

	destinations, err := s.Catalog().DestinationsFor(subscriptionID, origin)
	if err != nil {
		return h.handleError(c, err)
	}

	return response.OK(c, &AirportsResponse{
		SubscriptionID: subscriptionID,
		Origin:         origin,
		Airports:       nonNilAirports(destinations),
	})
}

// SelectRoute handles PUT /api/v1/session/route-selection
//
// @Summary Select origin and destination
// @Tags routes
// @Accept json
// @Produce json
// @Param request body RouteSelectionRequest true "Route"
// @Success 200 {object} usecase.RouteSelection
// @Failure 400 {object} response.ErrorDetail "Airport not permitted"
// @Failure 409 {object} response.ErrorDetail "Routes not loaded"
// @Router /api/v1/session/route-selection [put]
func (h *SessionHandler) SelectRoute(c echo.Context) error {
	var req RouteSelectionRequest
	if err := c.Bind(&req); err != nil {
		return response.InvalidRequestBody(c)
	}
	if err := req.Validate(); err != nil {
		return h.handleValidationError(c, err)
	}

	selection, err := middleware.GetSession(c).SelectRoute(req.Origin, req.Destination)
	if err != nil {
		return h.handleError(c, err)
	}

	return response.OK(c, selection)
}

// Search handles POST /api/v1/session/search
//
// @Summary Submit a search
// @Description Search flights from the form. Filters return to their defaults.
// @Description An incomplete form is acknowledged with skipped=true and sends nothing.
// @Tags search
// @Accept json
// @Produce json
// @Param request body SearchFormRequest true "Search form"
// @Success 200 {object} SearchStateDTO
// @Failure 400 {object} response.ErrorDetail "Validation error"
// @Failure 409 {object} response.ErrorDetail "Superseded by a newer search"
// @Failure 502 {object} response.ErrorDetail "Search failed"
// @Failure 504 {object} response.ErrorDetail "Gateway timeout"
// @Router /api/v1/session/search [post]
func (h *SessionHandler) Search(c echo.Context) error {
	var req SearchFormRequest
	if err := c.Bind(&req); err != nil {
		return response.InvalidRequestBody(c)
	}
	if err := req.Validate(); err != nil {
		return h.handleValidationError(c, err)
	}

	s := middleware.GetSession(c)
	_, err := s.Search(c.Request().Context(), ToSelections(&req))
	return h.respondSearch(c, s, err)
}

// GetSearch handles GET /api/v1/session/search
//
// @Summary Current search state
// @Tags search
// @Produce json
// @Success 200 {object} SearchStateDTO
// @Router /api/v1/session/search [get]
func (h *SessionHandler) GetSearch(c echo.Context) error {
	return h.respondSearch(c, middleware.GetSession(c), nil)
}

// DismissSearchError handles DELETE /api/v1/session/search/error
//
// @Summary Dismiss the last search error
// @Tags search
// @Success 204
// @Router /api/v1/session/search/error [delete]
func (h *SessionHandler) DismissSearchError(c echo.Context) error {
	middleware.GetSession(c).Executor().DismissError()
	return response.NoContent(c)
}

// PatchFilters handles PATCH /api/v1/session/filters
//
// @Summary Change filters
// @Description Discrete changes search immediately; duration changes are debounced.
// @Tags filters
// @Accept json
// @Produce json
// @Param request body FilterPatchRequest true "Filter changes"
// @Success 200 {object} SearchStateDTO
// @Failure 400 {object} response.ErrorDetail "Validation error"
// @Failure 502 {object} response.ErrorDetail "Search failed"
// @Router /api/v1/session/filters [patch]
func (h *SessionHandler) PatchFilters(c echo.Context) error {
	var req FilterPatchRequest
	if err := c.Bind(&req); err != nil {
		return response.InvalidRequestBody(c)
	}
	if err := req.Validate(); err != nil {
		return h.handleValidationError(c, err)
	}

	patch, err := ToFilterPatch(&req)
	if err != nil {
		return h.handleError(c, err)
	}

	s := middleware.GetSession(c)
	_, err = s.Filters().ApplyFilterChange(c.Request().Context(), patch)
	return h.respondSearch(c, s, err)
}

// ResetFilters handles POST /api/v1/session/filters/reset
//
// @Summary Reset filters
// @Tags filters
// @Produce json
// @Success 200 {object} SearchStateDTO
// @Failure 502 {object} response.ErrorDetail "Search failed"
// @Router /api/v1/session/filters/reset [post]
func (h *SessionHandler) ResetFilters(c echo.Context) error {
	s := middleware.GetSession(c)
	_, err := s.Filters().ResetFilters(c.Request().Context())
	return h.respondSearch(c, s, err)
}

// GetItinerary handles GET /api/v1/session/itinerary
//
// @Summary Itinerary selection state
// @Tags itinerary
// @Produce json
// @Success 200 {object} ItineraryDTO
// @Router /api/v1/session/itinerary [get]
func (h *SessionHandler) GetItinerary(c echo.Context) error {
	return response.OK(c, ToItineraryDTO(middleware.GetSession(c).Itinerary().Snapshot()))
}

// SetActiveLeg handles PUT /api/v1/session/itinerary/active-leg
//
// @Summary Switch the viewed leg
// @Tags itinerary
// @Accept json
// @Produce json
// @Param request body ActiveLegRequest true "Leg"
// @Success 200 {object} ItineraryDTO
// @Failure 409 {object} response.ErrorDetail "No return leg"
// @Router /api/v1/session/itinerary/active-leg [put]
func (h *SessionHandler) SetActiveLeg(c echo.Context) error {
	var req ActiveLegRequest
	if err := c.Bind(&req); err != nil {
		return response.InvalidRequestBody(c)
	}
	if err := req.Validate(); err != nil {
		return h.handleValidationError(c, err)
	}

	itinerary := middleware.GetSession(c).Itinerary()
	if err := itinerary.SetActiveLeg(domain.Leg(req.Leg)); err != nil {
		return h.handleError(c, err)
	}

	return response.OK(c, ToItineraryDTO(itinerary.Snapshot()))
}

// SelectOption handles POST /api/v1/session/itinerary/select
//
// @Summary Select a flight option
// @Description Selecting the last leg completes the itinerary and returns the booking draft.
// @Tags itinerary
// @Accept json
// @Produce json
// @Param request body SelectOptionRequest true "Selection"
// @Success 200 {object} ItineraryDTO
// @Failure 404 {object} response.ErrorDetail "Unknown option"
// @Failure 409 {object} response.ErrorDetail "Wrong leg or already complete"
// @Router /api/v1/session/itinerary/select [post]
func (h *SessionHandler) SelectOption(c echo.Context) error {
	var req SelectOptionRequest
	if err := c.Bind(&req); err != nil {
		return response.InvalidRequestBody(c)
	}
	if err := req.Validate(); err != nil {
		return h.handleValidationError(c, err)
	}

	itinerary := middleware.GetSession(c).Itinerary()
	if _, err := itinerary.Select(domain.Leg(req.Leg), req.OptionID); err != nil {
		return h.handleError(c, err)
	}

	return response.OK(c, ToItineraryDTO(itinerary.Snapshot()))
}

// GetLedger handles GET /api/v1/session/quota/:kind/:subscriptionId
//
// @Summary Staging ledger
// @Tags quota
// @Produce json
// @Param kind path string true "passenger or route"
// @Param subscriptionId path string true "Subscription ID"
// @Success 200 {object} domain.LedgerView
// @Router /api/v1/session/quota/{kind}/{subscriptionId} [get]
func (h *SessionHandler) GetLedger(c echo.Context) error {
	ledger, err := h.ledger(c)
	if err != nil {
		return h.handleError(c, err)
	}

	view, err := ledger.View(c.Request().Context(), c.Param("subscriptionId"))
	if err != nil {
		return h.handleError(c, err)
	}
	return response.OK(c, view)
}

// StageItem handles POST /api/v1/session/quota/:kind/:subscriptionId/pending
//
// @Summary Stage an item
// @Tags quota
// @Accept json
// @Produce json
// @Param kind path string true "passenger or route"
// @Param subscriptionId path string true "Subscription ID"
// @Param request body StageItemRequest true "Item"
// @Success 201 {object} domain.LedgerView
// @Failure 409 {object} response.ErrorDetail "Quota exceeded or duplicate"
// @Router /api/v1/session/quota/{kind}/{subscriptionId}/pending [post]
func (h *SessionHandler) StageItem(c echo.Context) error {
	ledger, err := h.ledger(c)
	if err != nil {
		return h.handleError(c, err)
	}

	var req StageItemRequest
	if err := c.Bind(&req); err != nil {
		return response.InvalidRequestBody(c)
	}
	if err := req.Validate(); err != nil {
		return h.handleValidationError(c, err)
	}

	ctx := c.Request().Context()
	subscriptionID := c.Param("subscriptionId")
	if err := ledger.Stage(ctx, subscriptionID, ToAttachment(&req, ledger.Kind())); err != nil {
		return h.handleError(c, err)
	}

	view, err := ledger.View(ctx, subscriptionID)
	if err != nil {
		return h.handleError(c, err)
	}
	return response.Created(c, view)
}

// DiscardItem handles DELETE /api/v1/session/quota/:kind/:subscriptionId/pending/:itemId
//
// @Summary Discard a pending item
// @Tags quota
// @Produce json
// @Param kind path string true "passenger or route"
// @Param subscriptionId path string true "Subscription ID"
// @Param itemId path string true "Item ID"
// @Success 200 {object} domain.LedgerView
// @Failure 409 {object} response.ErrorDetail "Item already committed"
// @Router /api/v1/session/quota/{kind}/{subscriptionId}/pending/{itemId} [delete]
func (h *SessionHandler) DiscardItem(c echo.Context) error {
	ledger, err := h.ledger(c)
	if err != nil {
		return h.handleError(c, err)
	}

	subscriptionID := c.Param("subscriptionId")
	if err := ledger.Discard(subscriptionID, c.Param("itemId")); err != nil {
		return h.handleError(c, err)
	}

	view, err := ledger.View(c.Request().Context(), subscriptionID)
	if err != nil {
		return h.handleError(c, err)
	}
	return response.OK(c, view)
}

// CommitItems handles POST /api/v1/session/quota/:kind/:subscriptionId/commit
//
// @Summary Commit pending items
// @Description On failure the items stay pending and the backend message is returned.
// @Tags quota
// @Produce json
// @Param kind path string true "passenger or route"
// @Param subscriptionId path string true "Subscription ID"
// @Success 200 {object} domain.LedgerView
// @Failure 409 {object} response.ErrorDetail "Nothing to commit"
// @Failure 502 {object} response.ErrorDetail "Commit failed"
// @Router /api/v1/session/quota/{kind}/{subscriptionId}/commit [post]
func (h *SessionHandler) CommitItems(c echo.Context) error {
	ledger, err := h.ledger(c)
	if err != nil {
		return h.handleError(c, err)
	}

	ctx := c.Request().Context()
	subscriptionID := c.Param("subscriptionId")
	if err := middleware.GetSession(c).CommitAttachments(ctx, ledger.Kind(), subscriptionID); err != nil {
		return h.handleError(c, err)
	}

	view, err := ledger.View(ctx, subscriptionID)
	if err != nil {
		return h.handleError(c, err)
	}
	return response.OK(c, view)
}

// EndSession handles DELETE /api/v1/session
//
// @Summary End the session
// @Description Clears the cached search and releases the session.
// @Tags session
// @Success 204
// @Router /api/v1/session [delete]
func (h *SessionHandler) EndSession(c echo.Context) error {
	s := middleware.GetSession(c)
	if err := h.sessions.Remove(c.Request().Context(), s.ID()); err != nil {
		return h.handleError(c, err)
	}
	return response.NoContent(c)
}

// Health handles GET /health
// Simple health check endpoint.
func (h *SessionHandler) Health(c echo.Context) error {
	return response.Health(c, h.sessions.Len())
}

// respondSearch writes the search state after a search-producing call.
// An incomplete form is not an error; the state is returned with skipped set.
func (h *SessionHandler) respondSearch(c echo.Context, s *usecase.Session, err error) error {
	skipped := errors.Is(err, domain.ErrSkipSearch)
	if err != nil && !skipped {
		return h.handleError(c, err)
	}

	state, err := s.SearchState(c.Request().Context())
	if err != nil {
		return h.handleError(c, err)
	}

	dto := ToSearchStateDTO(state)
	dto.Skipped = skipped
	return response.OK(c, dto)
}

func (h *SessionHandler) ledger(c echo.Context) (*usecase.QuotaLedger, error) {
	kind := domain.AttachmentKind(c.Param("kind"))
	if !kind.IsValid() {
		return nil, domain.WrapInvalidRequest("kind must be one of: passenger, route")
	}
	return middleware.GetSession(c).Ledger(kind)
}

// handleValidationError handles validation errors and returns a 400 response.
func (h *SessionHandler) handleValidationError(c echo.Context, err error) error {
	var validationErrs *ValidationErrors
	if errors.As(err, &validationErrs) {
		return response.ValidationError(c, validationErrs.ToMap())
	}

	// Fallback for non-structured validation errors
	return response.ValidationErrorWithMessage(c, err.Error())
}

// handleError maps domain errors to appropriate HTTP responses.
func (h *SessionHandler) handleError(c echo.Context, err error) error {
	var (
		quotaErr   *domain.QuotaExceededError
		commitErr  *domain.CommitError
		searchErr  *domain.SearchError
		backendErr *domain.BackendError
	)

	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrUnknownAirport):
		return response.ValidationErrorWithMessage(c, err.Error())

	case errors.Is(err, domain.ErrSuperseded):
		return response.Conflict(c, response.CodeSuperseded, response.MsgSuperseded, nil)

	case errors.As(err, &quotaErr):
		return response.Conflict(c, response.CodeQuotaExceeded, quotaErr.Error(), map[string]string{
			"kind":      string(quotaErr.Kind),
			"allowance": strconv.Itoa(quotaErr.Allowance),
		})

	case errors.Is(err, domain.ErrSessionNotFound):
		return response.SessionNotFound(c)

	case errors.Is(err, domain.ErrSubscriptionNotFound), errors.Is(err, domain.ErrUnknownOption):
		return response.NotFound(c, response.CodeNotFound, err.Error())

	case errors.Is(err, domain.ErrSubscriptionExpired):
		return response.Conflict(c, response.CodeSubscriptionExpired, err.Error(), nil)

	case errors.Is(err, domain.ErrRoutesNotLoaded):
		return response.Conflict(c, response.CodeRoutesNotLoaded, err.Error(), nil)

	case errors.Is(err, domain.ErrWrongLeg),
		errors.Is(err, domain.ErrSelectionComplete),
		errors.Is(err, domain.ErrNoActiveSearch):
		return response.Conflict(c, response.CodeSelectionConflict, err.Error(), nil)

	case errors.Is(err, domain.ErrDuplicateItem),
		errors.Is(err, domain.ErrCommittedItem),
		errors.Is(err, domain.ErrNothingToCommit):
		return response.Conflict(c, response.CodeAttachmentConflict, err.Error(), nil)

	// Check for context deadline exceeded (timeout)
	case errors.Is(err, context.DeadlineExceeded), backend.IsTimeout(err):
		return response.GatewayTimeout(c)

	// Check for context cancelled
	case errors.Is(err, context.Canceled):
		return response.RequestCancelled(c)

	case errors.As(err, &commitErr):
		return response.BadGateway(c, response.CodeCommitFailed, commitErr.Message)

	case errors.As(err, &searchErr):
		return response.BadGateway(c, response.CodeSearchFailed, searchErr.Message)

	case errors.As(err, &backendErr):
		return response.BadGateway(c, response.CodeBackendError, domain.DisplayMessage(err, response.MsgBackendError))
	}

	h.log.Error().
		Err(err).
		Str("request_id", middleware.GetRequestID(c)).
		Str("session_id", middleware.GetSessionID(c)).
		Msg("Unhandled error")

	// Default to internal server error
	return response.InternalServerError(c)
}

func nonNilAirports(airports []domain.Airport) []domain.Airport {
	if airports == nil {
		return []domain.Airport{}
	}
	return airports
}
