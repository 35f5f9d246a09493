package cases

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/amp-care/caselink/internal/domain/caserecord"
	"github.com/amp-care/caselink/internal/platform/auth"
	"github.com/amp-care/caselink/internal/platform/matrix"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	readGroup.GET("/rooms", h.ListRooms)
	readGroup.GET("/rooms/:roomID/projection", h.GetProjection)
	readGroup.GET("/rooms/:roomID/report", h.GetReport)

	writeGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	writeGroup.POST("/rooms/:roomID/case", h.CreateCase)
	writeGroup.POST("/rooms/:roomID/close", h.CloseCase)
	writeGroup.POST("/rooms/:roomID/events", h.IngestEvents)
}

func (h *Handler) ListRooms(c echo.Context) error {
	rooms, err := h.svc.Rooms(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"rooms": rooms})
}

func (h *Handler) GetProjection(c echo.Context) error {
	p, err := h.svc.Projection(c.Request().Context(), c.Param("roomID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) GetReport(c echo.Context) error {
	r, err := h.svc.Report(c.Request().Context(), c.Param("roomID"), c.QueryParam("room_name"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) CreateCase(c echo.Context) error {
	var form caserecord.CaseForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	outcomes := h.svc.CreateCase(c.Request().Context(), c.Param("roomID"), form)

	status := http.StatusCreated
	for _, o := range outcomes {
		if o.Failed() {
			// partial creation is possible; the client sees every outcome
			status = http.StatusMultiStatus
			break
		}
	}
	return c.JSON(status, map[string]interface{}{"outcomes": outcomes})
}

func (h *Handler) CloseCase(c echo.Context) error {
	eventID, err := h.svc.CloseCase(c.Request().Context(), c.Param("roomID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"eventId": eventID})
}

func (h *Handler) IngestEvents(c echo.Context) error {
	var body struct {
		Events []*matrix.Event `json:"events"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Ingest(c.Request().Context(), c.Param("roomID"), body.Events); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusAccepted, map[string]int{"ingested": len(body.Events)})
}
