package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/elongilad/scav-hunt-engine/internal/api/handler/v1/request"
	"github.com/elongilad/scav-hunt-engine/internal/api/handler/v1/response"
	"github.com/elongilad/scav-hunt-engine/internal/domain"
	"github.com/elongilad/scav-hunt-engine/internal/service"
)

type EngineService interface {
	SubmitEvent(ctx context.Context, evt domain.DomainEvent) (service.Ack, error)
	GetEventState() domain.Event
	GetTeamStates() []domain.Team
	GetStationStates() []domain.Station
	GetTeamVisits(teamID string) ([]domain.Visit, error)
	GetAggregates() domain.AggregateSnapshot
	GetInsights() []domain.Insight
	RequestPhaseTransition(ctx context.Context, action domain.PhaseAction) (domain.EventPhase, error)
	RegisterTeam(name string) (domain.Team, error)
	AddStation(station domain.Station) (domain.Station, error)
	SetStationsActive(ids []string, active bool) (service.BulkResult, error)
}

type EngineHandler struct {
	svc EngineService
}

func NewEngineHandler(svc EngineService) *EngineHandler {
	return &EngineHandler{
		svc: svc,
	}
}

// renderServiceErr maps the engine's error taxonomy onto HTTP statuses.
// Error messages are surfaced verbatim so the UI can show them as-is.
func renderServiceErr(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTeamNotFound),
		errors.Is(err, service.ErrStationNotFound),
		errors.Is(err, service.ErrNotificationNotFound):
		response.RenderErr(ctx, &response.Err{StatusCode: http.StatusNotFound, ErrorMsg: err.Error()})
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrUnknownTarget):
		response.RenderErr(ctx, response.ErrBadRequest(err))
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrNoTeams),
		errors.Is(err, service.ErrResetForbidden),
		errors.Is(err, service.ErrTeamExists),
		errors.Is(err, service.ErrStationExists),
		errors.Is(err, service.ErrDuplicateSequence),
		errors.Is(err, service.ErrEventConcluded),
		errors.Is(err, service.ErrUndeletable),
		errors.Is(err, service.ErrConcurrencyConflict):
		response.RenderErr(ctx, response.ErrConflict(err))
	case errors.Is(err, service.ErrRateLimited):
		response.RenderErr(ctx, response.ErrTooManyRequests(err))
	default:
		response.RenderErr(ctx, response.ErrInternalServerError(err))
	}
}

// HandleSubmitEvent godoc
// @Summary      Submit a domain event
// @Description  Ingests a typed domain event (team status change, station visit, etc.)
// @Tags         engine
// @Accept       json
// @Produce      json
// @Param        input  body      request.SubmitEventRequest  true  "domain event"
// @Success      202    {object}  service.Ack
// @Failure      400    {object}  response.Err
// @Failure      404    {object}  response.Err
// @Failure      409    {object}  response.Err
// @Router       /events [post]
func (h *EngineHandler) HandleSubmitEvent(ctx *gin.Context) {
	var input request.SubmitEventRequest
	if err := ctx.ShouldBindJSON(&input); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := input.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	evt := domain.DomainEvent{
		ID:             input.ID,
		Kind:           domain.EventKind(input.Kind),
		TeamID:         input.TeamID,
		StationID:      input.StationID,
		TeamStatus:     domain.TeamStatus(input.TeamStatus),
		StationActive:  input.StationActive,
		Action:         domain.PhaseAction(input.Action),
		NotificationID: input.NotificationID,
		RecipientID:    input.RecipientID,
		Title:          input.Title,
		Body:           input.Body,
	}
	if input.OccurredAt != nil {
		evt.OccurredAt = *input.OccurredAt
	}

	ack, err := h.svc.SubmitEvent(ctx.Request.Context(), evt)
	if err != nil {
		renderServiceErr(ctx, fmt.Errorf("h.svc.SubmitEvent -> %w", err))
		return
	}

	ctx.JSON(http.StatusAccepted, ack)
}

// HandleGetEventState godoc
// @Summary      Get event phase info
// @Tags         engine
// @Produce      json
// @Success      200  {object}  domain.Event
// @Router       /state [get]
func (h *EngineHandler) HandleGetEventState(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, h.svc.GetEventState())
}

// HandleGetTeams godoc
// @Summary      List team states
// @Tags         engine
// @Produce      json
// @Success      200  {array}  domain.Team
// @Router       /teams [get]
func (h *EngineHandler) HandleGetTeams(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, h.svc.GetTeamStates())
}

// HandleGetTeamVisits godoc
// @Summary      Get a team's visit history
// @Tags         engine
// @Produce      json
// @Param        teamID  path      string  true  "Team ID"
// @Success      200     {array}   domain.Visit
// @Failure      404     {object}  response.Err
// @Router       /teams/{teamID}/visits [get]
func (h *EngineHandler) HandleGetTeamVisits(ctx *gin.Context) {
	visits, err := h.svc.GetTeamVisits(ctx.Param("teamID"))
	if err != nil {
		renderServiceErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, visits)
}

// HandleGetStations godoc
// @Summary      List station states in sequence order
// @Tags         engine
// @Produce      json
// @Success      200  {array}  domain.Station
// @Router       /stations [get]
func (h *EngineHandler) HandleGetStations(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, h.svc.GetStationStates())
}

// HandleGetAggregates godoc
// @Summary      Get aggregated live metrics
// @Description  Completion rate, congestion levels, funnel and difficulty scores
// @Tags         engine
// @Produce      json
// @Success      200  {object}  domain.AggregateSnapshot
// @Router       /aggregates [get]
func (h *EngineHandler) HandleGetAggregates(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, h.svc.GetAggregates())
}

// HandleGetInsights godoc
// @Summary      Get prioritized operational insights
// @Tags         engine
// @Produce      json
// @Success      200  {array}  domain.Insight
// @Router       /insights [get]
func (h *EngineHandler) HandleGetInsights(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, h.svc.GetInsights())
}

// HandleRequestPhase godoc
// @Summary      Request a lifecycle phase transition
// @Tags         engine
// @Accept       json
// @Produce      json
// @Param        input  body      request.PhaseTransitionRequest  true  "lifecycle action"
// @Success      200    {object}  map[string]string
// @Failure      400    {object}  response.Err
// @Failure      409    {object}  response.Err
// @Router       /phase [post]
func (h *EngineHandler) HandleRequestPhase(ctx *gin.Context) {
	var input request.PhaseTransitionRequest
	if err := ctx.ShouldBindJSON(&input); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := input.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	phase, err := h.svc.RequestPhaseTransition(ctx.Request.Context(), domain.PhaseAction(input.Action))
	if err != nil {
		renderServiceErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"phase": string(phase)})
}

// HandleRegisterTeam godoc
// @Summary      Register a team
// @Tags         engine
// @Accept       json
// @Produce      json
// @Param        input  body      request.RegisterTeamRequest  true  "team details"
// @Success      201    {object}  domain.Team
// @Failure      400    {object}  response.Err
// @Failure      409    {object}  response.Err
// @Router       /teams [post]
func (h *EngineHandler) HandleRegisterTeam(ctx *gin.Context) {
	var input request.RegisterTeamRequest
	if err := ctx.ShouldBindJSON(&input); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := input.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	team, err := h.svc.RegisterTeam(input.Name)
	if err != nil {
		renderServiceErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, team)
}

// HandleAddStation godoc
// @Summary      Add a station
// @Tags         engine
// @Accept       json
// @Produce      json
// @Param        input  body      request.AddStationRequest  true  "station details"
// @Success      201    {object}  domain.Station
// @Failure      400    {object}  response.Err
// @Failure      409    {object}  response.Err
// @Router       /stations [post]
func (h *EngineHandler) HandleAddStation(ctx *gin.Context) {
	var input request.AddStationRequest
	if err := ctx.ShouldBindJSON(&input); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := input.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	station := domain.Station{
		Name:     input.Name,
		Sequence: input.Sequence,
		Active:   input.Active,
	}
	if input.Clue != nil {
		station.Clue = &domain.ClueContent{
			Kind:     domain.ClueKind(input.Clue.Kind),
			Text:     input.Clue.Text,
			ImageURL: input.Clue.ImageURL,
			Question: input.Clue.Question,
			Answers:  input.Clue.Answers,
		}
	}

	added, err := h.svc.AddStation(station)
	if err != nil {
		renderServiceErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, added)
}

// HandleBulkActivate godoc
// @Summary      Activate or deactivate stations in bulk
// @Description  Atomic: either every station is updated or none are and the failing IDs are reported
// @Tags         engine
// @Accept       json
// @Produce      json
// @Param        input  body      request.BulkActivateRequest  true  "station ids and desired state"
// @Success      200    {object}  service.BulkResult
// @Failure      400    {object}  response.Err
// @Failure      404    {object}  service.BulkResult
// @Router       /stations/activate [post]
func (h *EngineHandler) HandleBulkActivate(ctx *gin.Context) {
	var input request.BulkActivateRequest
	if err := ctx.ShouldBindJSON(&input); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := input.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	result, err := h.svc.SetStationsActive(input.StationIDs, input.Active)
	if err != nil {
		if len(result.Failed) > 0 {
			// Partial failure report: nothing was applied.
			ctx.JSON(http.StatusNotFound, result)
			return
		}
		renderServiceErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, result)
}

// HandleHealthcheck godoc
// @Summary      Healthcheck
// @Tags         system
// @Produce      plain
// @Success      200  {string}  string  "OK"
// @Router       / [get]
func HandleHealthcheck(ctx *gin.Context) {
	ctx.String(http.StatusOK, "OK at %v", time.Now().UTC().Format(time.RFC3339))
}
