package http

import (
	"strings"

	"github.com/google/uuid"

	"github.com/flight-search/flight-session-orchestrator/internal/domain"
	"github.com/flight-search/flight-session-orchestrator/internal/usecase"
)

// dateTimeLayout is the display format of departure and arrival times.
const dateTimeLayout = "2006-01-02T15:04:05-07:00"

// ToSelections converts the search form into use-case selections.
func ToSelections(req *SearchFormRequest) usecase.Selections {
	sel := usecase.Selections{
		SubscriptionID: req.SubscriptionID,
		Origin:         req.Origin,
		Destination:    req.Destination,
		DepartureDate:  strings.TrimSpace(req.DepartureDate),
	}

	if req.ReturnDate != nil {
		sel.ReturnDateTouched = true
		sel.ReturnDate = strings.TrimSpace(*req.ReturnDate)
	}

	if req.Passengers != nil {
		sel.Passengers = &domain.PassengerCounts{
			Adult:  req.Passengers.Adult,
			Child:  req.Passengers.Child,
			Infant: req.Passengers.Infant,
		}
	}

	return sel
}

// ToFilterPatch converts a validated patch request into a domain patch.
// durationHours is folded into the duration range.
func ToFilterPatch(req *FilterPatchRequest) (domain.FilterPatch, error) {
	patch := req.FilterPatch
	if !req.DurationHours.Set {
		return patch, nil
	}

	if req.DurationHours.Value == nil {
		patch.DurationRange = domain.Set[*domain.DurationRange](nil)
		return patch, nil
	}

	dr, err := usecase.DurationHoursToMinutes(req.DurationHours.Value.Min, req.DurationHours.Value.Max)
	if err != nil {
		return domain.FilterPatch{}, err
	}
	patch.DurationRange = domain.Set(&dr)
	return patch, nil
}

// ToAttachment converts a staged item request, generating an ID when absent.
func ToAttachment(req *StageItemRequest, kind domain.AttachmentKind) domain.Attachment {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	return domain.Attachment{
		ID:    id,
		Label: req.Label,
		Kind:  kind,
	}
}

// ToSearchStateDTO converts the session's search state.
func ToSearchStateDTO(state usecase.SearchState) *SearchStateDTO {
	return &SearchStateDTO{
		Result:          ToSearchResultDTO(state.Result),
		Filters:         state.Filters,
		LastError:       state.LastError,
		DebouncePending: state.DebouncePending,
	}
}

// ToSearchResultDTO converts a cached search result.
func ToSearchResultDTO(result *domain.SearchResult) *SearchResultDTO {
	if result == nil {
		return nil
	}

	return &SearchResultDTO{
		Request:    result.Request,
		Outbound:   toFlightOptionDTOs(result.Outbound),
		Return:     toFlightOptionDTOs(result.Return),
		Empty:      result.Empty,
		SearchedAt: result.SearchedAt,
	}
}

func toFlightOptionDTOs(options []domain.FlightOption) []FlightOptionDTO {
	dtos := make([]FlightOptionDTO, len(options))
	for i := range options {
		dtos[i] = ToFlightOptionDTO(&options[i])
	}
	return dtos
}

// ToFlightOptionDTO converts a domain FlightOption to a FlightOptionDTO.
func ToFlightOptionDTO(option *domain.FlightOption) FlightOptionDTO {
	return FlightOptionDTO{
		ID:           option.ID,
		FlightNumber: option.FlightNumber,
		Airline: AirlineDTO{
			Code: option.Carrier,
			Name: option.CarrierName,
		},
		Departure: FlightPointDTO{
			Airport:   option.Origin,
			DateTime:  option.DepartureTime.Format(dateTimeLayout),
			Timestamp: option.DepartureTime.Unix(),
		},
		Arrival: FlightPointDTO{
			Airport:   option.Destination,
			DateTime:  option.ArrivalTime.Format(dateTimeLayout),
			Timestamp: option.ArrivalTime.Unix(),
		},
		Duration: DurationDTO{
			TotalMinutes: option.DurationMinutes,
			Formatted:    domain.FormatDuration(option.DurationMinutes),
		},
		Stops:     option.Stops,
		FareClass: option.FareClass,
	}
}

func toOptionalFlightDTO(option *domain.FlightOption) *FlightOptionDTO {
	if option == nil {
		return nil
	}
	dto := ToFlightOptionDTO(option)
	return &dto
}

// ToItineraryDTO converts an itinerary snapshot.
func ToItineraryDTO(snap domain.ItinerarySnapshot) *ItineraryDTO {
	dto := &ItineraryDTO{
		TripType:  snap.TripType,
		State:     snap.State,
		ActiveLeg: snap.ActiveLeg,
		Outbound:  toOptionalFlightDTO(snap.Outbound),
		Return:    toOptionalFlightDTO(snap.Return),
	}

	if d := snap.Draft; d != nil {
		dto.Draft = &BookingDraftDTO{
			SubscriptionID: d.SubscriptionID,
			TripType:       d.TripType,
			Passengers:     d.Passengers,
			Outbound:       ToFlightOptionDTO(&d.Outbound),
			Return:         toOptionalFlightDTO(d.Return),
			CreatedAt:      d.CreatedAt,
		}
	}

	return dto
}
