package api

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/HankJediAssistant/hank-board/internal/consts"
	"github.com/HankJediAssistant/hank-board/internal/domain"
	"github.com/HankJediAssistant/hank-board/internal/hub"
)

const maxBodySize = 1 << 20

var errColumnsRequired = errors.New("columns required")

// Deps are the collaborators the routes need. Auth may be nil, in which case
// write routes are open.
type Deps struct {
	Board    BoardStore
	Jobs     JobSource
	Roster   *domain.Roster
	Codec    *domain.Codec
	Hub      *hub.Hub
	Notifier Notifier
	Auth     Authenticator
	Logger   *log.Logger
}

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, d Deps) {
	if d.Logger == nil {
		d.Logger = log.StandardLogger()
	}
	if d.Notifier == nil {
		d.Notifier = d.Hub
	}

	writeMW := []echo.MiddlewareFunc{GzipRequestMiddleware()}
	if d.Auth != nil {
		writeMW = append(writeMW, RequireBearer(d.Auth))
	}

	e.GET("/api/family", getFamily(d.Roster))
	e.GET("/api/board", getBoard(d.Board, d.Codec, d.Logger))
	e.POST("/api/board", postBoard(d.Board, d.Codec, d.Notifier, d.Logger), writeMW...)
	e.GET("/api/dashboard", getDashboard(d.Board, d.Codec, d.Roster, d.Jobs, d.Logger))
	e.GET("/api/cron/jobs", getJobs(d.Jobs))
	e.GET("/api/events", streamEvents(d.Hub))
	e.POST("/api/refresh", postRefresh(d.Notifier, d.Logger), writeMW...)
	e.GET("/healthz", healthz())
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func getFamily(roster *domain.Roster) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, familyResponse{Members: roster.Members()})
	}
}

func getBoard(store BoardStore, codec *domain.Codec, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx := newRequestMetrics(c.Request().Context(), logger, "/api/board", http.MethodGet)
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		readStart := time.Now()
		content, readErr := store.Read(ctx)
		metrics.Observe("read", time.Since(readStart))
		if readErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(readErr)
			err = c.JSON(http.StatusInternalServerError, errorResponse{Error: readErr.Error()})
			return err
		}

		columns := codec.Parse(content)
		metrics.SetColumns(columns)
		err = c.JSON(http.StatusOK, boardResponse{Columns: columns})
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func postBoard(store BoardStore, codec *domain.Codec, notifier Notifier, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx := newRequestMetrics(c.Request().Context(), logger, "/api/board", http.MethodPost)
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		req, decodeErr := decodeBoardRequest(c.Request().Body)
		if decodeErr != nil {
			metrics.SetErrorStage("decode_request")
			err = c.JSON(http.StatusBadRequest, errorResponse{Error: decodeErr.Error()})
			return err
		}
		metrics.SetColumns(req.Columns)

		content := codec.Serialize(req.Columns)
		writeStart := time.Now()
		writeErr := store.Write(ctx, content)
		metrics.Observe("write", time.Since(writeStart))
		if writeErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(writeErr)
			err = c.JSON(http.StatusInternalServerError, errorResponse{Error: writeErr.Error()})
			return err
		}

		if notifyErr := notifier.Notify(ctx, consts.EventBoard); notifyErr != nil {
			logger.WithError(notifyErr).Error("failed to publish board event")
		}
		return c.JSON(http.StatusOK, okResponse{OK: true})
	}
}

func decodeBoardRequest(body io.Reader) (boardRequest, error) {
	var req boardRequest
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(body, maxBodySize))
	if err := dec.Decode(&req); err != nil {
		return boardRequest{}, errors.New("invalid body")
	}
	if req.Columns == nil {
		return boardRequest{}, errColumnsRequired
	}
	return req, nil
}

// getDashboard treats an unreadable board as an empty one so the dashboard
// keeps rendering job data; GET /api/board reports the same failure as 500.
func getDashboard(store BoardStore, codec *domain.Codec, roster *domain.Roster, jobs JobSource, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx := newRequestMetrics(c.Request().Context(), logger, "/api/dashboard", http.MethodGet)
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		jobList := jobs.Jobs(ctx)

		var columns []domain.Column
		content, readErr := store.Read(ctx)
		if readErr != nil {
			logger.WithError(readErr).Debug("dashboard: board unreadable, using empty board")
		} else {
			columns = codec.Parse(content)
		}
		metrics.SetColumns(columns)

		summary := domain.Summarize(columns, roster.IDs(), jobList)
		err = c.JSON(http.StatusOK, dashboardResponse{DashboardSummary: summary, Family: roster.Members()})
		return err
	}
}

func getJobs(jobs JobSource) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, jobsResponse{Jobs: jobs.Jobs(c.Request().Context())})
	}
}

func postRefresh(notifier Notifier, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req refreshRequest
		body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodySize))
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		if len(strings.TrimSpace(string(body))) > 0 {
			if err := sonic.ConfigStd.Unmarshal(body, &req); err != nil {
				return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
			}
		}
		eventType := strings.TrimSpace(req.Type)
		if eventType == "" {
			eventType = consts.EventAll
		}
		if err := notifier.Notify(c.Request().Context(), eventType); err != nil {
			logger.WithError(err).WithField("type", eventType).Error("failed to publish refresh event")
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		}
		return c.JSON(http.StatusOK, refreshResponse{OK: true, Clients: notifier.Clients()})
	}
}
