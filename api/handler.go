package api

import (
	"RouteGrader/detector"
	"RouteGrader/engine"
	"RouteGrader/feedback"
	iface "RouteGrader/interface"
	"RouteGrader/model"
	"RouteGrader/session"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxModelBytes bounds uploaded model files.
const maxModelBytes = 64 << 20

var errNoModel = errors.New("no model loaded")

type Detector interface {
	Detect(ctx context.Context, image []byte) (detector.Detection, error)
}

type Handler struct {
	models   *model.Holder
	sessions *Registry
	feedback *feedback.Service
	detector Detector
	log      *zap.Logger
}

func NewHandler(models *model.Holder, sessions *Registry, fb *feedback.Service, det Detector, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{models: models, sessions: sessions, feedback: fb, detector: det, log: log}
}

type createRequest struct {
	Boxes  []iface.Box `json:"boxes"`
	Active []bool      `json:"active"`
	Width  float64     `json:"width"`
	Height float64     `json:"height"`
}

type feedbackRequest struct {
	Correct   bool   `json:"correct"`
	RealGrade int    `json:"realGrade"`
	UserID    string `json:"userID"`
}

type saveRequest struct {
	UserID string `json:"userID" binding:"required"`
}

type routeView struct {
	iface.SavedRoute
	Holds []string `json:"holds"`
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, iface.ErrInvalidExtent),
		errors.Is(err, iface.ErrInvalidGrade),
		errors.Is(err, iface.ErrSelectionMismatch),
		errors.Is(err, iface.ErrModelFormat):
		return http.StatusBadRequest
	case errors.Is(err, iface.ErrNotMapped), errors.Is(err, iface.ErrNotClassified):
		return http.StatusConflict
	case errors.Is(err, errNoModel), errors.Is(err, detector.ErrNoEndpoint):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	code := statusOf(err)
	if code >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

func modelInfo(n *model.Network) gin.H {
	return gin.H{"dims": n.Dims(), "digest": n.Digest()}
}

func (h *Handler) GetModel(c *gin.Context) {
	n := h.models.Current()
	if n == nil {
		h.fail(c, errNoModel)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": modelInfo(n)})
}

// UploadModel validates the JSON network in the body and makes it the active
// model. Sessions classify with whichever model is current at that moment.
func (h *Handler) UploadModel(c *gin.Context) {
	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxModelBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read model: " + err.Error()})
		return
	}
	n, err := model.Load(data)
	if err != nil {
		h.fail(c, err)
		return
	}
	prev := h.models.Swap(n)
	fields := []zap.Field{zap.String("digest", n.Digest()), zap.Ints("dims", n.Dims())}
	if prev != nil {
		fields = append(fields, zap.String("previous", prev.Digest()))
	}
	h.log.Info("model replaced", fields...)
	c.JSON(http.StatusOK, gin.H{"data": modelInfo(n)})
}

func (h *Handler) Detect(c *gin.Context) {
	if h.detector == nil {
		h.fail(c, detector.ErrNoEndpoint)
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file upload failed: " + err.Error()})
		return
	}
	f, err := file.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer f.Close()
	image, err := io.ReadAll(f)
	if err != nil {
		h.fail(c, err)
		return
	}
	det, err := h.detector.Detect(c.Request.Context(), image)
	if err != nil {
		if errors.Is(err, detector.ErrNoEndpoint) {
			h.fail(c, err)
			return
		}
		h.log.Warn("hold detection failed", zap.String("file", file.Filename), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": det})
}

func (h *Handler) CreateSession(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s := session.New(h.log)
	extent := iface.ImageExtent{Width: req.Width, Height: req.Height}
	var selected int
	if req.Active != nil {
		n, err := s.BeginSelection(req.Active, req.Boxes, extent)
		if err != nil {
			h.fail(c, err)
			return
		}
		selected = n
	} else {
		selected = s.Begin(req.Boxes, extent)
	}
	id := h.sessions.Alloc(s)
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"sessionID": id, "selected": selected}})
}

func (h *Handler) MapSession(c *gin.Context) {
	var largeHolds int
	var holds []string
	err := h.sessions.With(c.Param("id"), func(s *session.Session) error {
		var err error
		largeHolds, err = s.MapAndCheck()
		holds = s.Holds()
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"largeHolds": largeHolds, "holds": holds}})
}

func (h *Handler) ClassifySession(c *gin.Context) {
	n := h.models.Current()
	if n == nil {
		h.fail(c, errNoModel)
		return
	}
	var res iface.GradeResult
	var coords []int
	err := h.sessions.With(c.Param("id"), func(s *session.Session) error {
		var err error
		res, err = s.Classify(n)
		coords = s.Flattened()
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"grade":         res.Label,
		"ordinal":       res.Ordinal,
		"probabilities": res.Probabilities,
		"coordinates":   coords,
	}})
}

func (h *Handler) SubmitFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var rec iface.FeedbackRecord
	err := h.sessions.With(c.Param("id"), func(s *session.Session) error {
		var err error
		rec, err = s.Feedback(req.Correct, req.RealGrade, req.UserID)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	id, err := h.feedback.Submit(c.Request.Context(), rec)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": id, "record": rec}})
}

func (h *Handler) SaveRoute(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var route iface.SavedRoute
	err := h.sessions.With(c.Param("id"), func(s *session.Session) error {
		var err error
		route, err = s.SavedRoute(req.UserID)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.feedback.SaveRoute(c.Request.Context(), route); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": route})
}

func (h *Handler) ReleaseSession(c *gin.Context) {
	if !h.sessions.Release(c.Param("id")) {
		h.fail(c, ErrSessionNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": "session released"})
}

// UserRoutes lists saved routes with their hold labels redrawn from the
// stored coordinates.
func (h *Handler) UserRoutes(c *gin.Context) {
	routes, err := h.feedback.Routes(c.Request.Context(), c.Param("uid"))
	if err != nil {
		h.fail(c, err)
		return
	}
	views := make([]routeView, 0, len(routes))
	for _, r := range routes {
		v := routeView{SavedRoute: r}
		if g, err := engine.Unflatten(r.Coordinates); err == nil {
			v.Holds = g.Holds()
		} else {
			h.log.Warn("saved route has malformed coordinates", zap.String("route", r.ID), zap.Error(err))
		}
		views = append(views, v)
	}
	c.JSON(http.StatusOK, gin.H{"data": views})
}
