package session

import (
	"RouteGrader/engine"
	"RouteGrader/grid"
	iface "RouteGrader/interface"
	"RouteGrader/model"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session grades one route: Begin, MapAndCheck (possibly several times), then
// Classify. It is not safe for concurrent use.
type Session struct {
	log *zap.Logger

	boxes  []iface.Box
	extent iface.ImageExtent

	grid       grid.Grid
	largeHolds int
	mapped     bool

	// flattened is filled by the first Classify and never recomputed.
	flattened []int
	result    *iface.GradeResult
}

func New(log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{log: log}
}

// Begin stores the selected boxes and the image size and returns how many
// boxes were selected. Any previous mapping is discarded.
func (s *Session) Begin(boxes []iface.Box, extent iface.ImageExtent) int {
	s.boxes = append([]iface.Box(nil), boxes...)
	s.extent = extent
	s.grid = grid.Grid{}
	s.largeHolds = 0
	s.mapped = false
	s.result = nil
	return len(s.boxes)
}

// BeginSelection keeps the boxes whose active flag is set.
func (s *Session) BeginSelection(active []bool, boxes []iface.Box, extent iface.ImageExtent) (int, error) {
	if len(active) != len(boxes) {
		return 0, fmt.Errorf("%w: %d flags for %d boxes", iface.ErrSelectionMismatch, len(active), len(boxes))
	}
	selected := make([]iface.Box, 0, len(boxes))
	for i, box := range boxes {
		if active[i] {
			selected = append(selected, box)
		}
	}
	return s.Begin(selected, extent), nil
}

// MapAndCheck maps the selection onto the wall grid and returns the number of
// large holds.
func (s *Session) MapAndCheck() (int, error) {
	g, largeHolds, err := grid.Map(s.boxes, s.extent)
	if err != nil {
		s.mapped = false
		return 0, err
	}
	s.grid = g
	s.largeHolds = largeHolds
	s.mapped = true
	s.log.Debug("route mapped",
		zap.Int("boxes", len(s.boxes)),
		zap.Int("cells", g.Count()),
		zap.Int("largeHolds", largeHolds))
	return largeHolds, nil
}

// Classify runs the network over the current grid. The first call also
// caches the flattened grid returned by Flattened; later calls, even after
// re-mapping, keep that first vector.
func (s *Session) Classify(n *model.Network) (iface.GradeResult, error) {
	if !s.mapped {
		return iface.GradeResult{}, iface.ErrNotMapped
	}
	v := engine.Flatten(s.grid)
	if len(s.flattened) == 0 {
		s.flattened = v
	}
	res, err := engine.PredictVector(v, n)
	if err != nil {
		return iface.GradeResult{}, err
	}
	s.result = &res
	s.log.Debug("route classified", zap.String("grade", res.Label), zap.Float64s("probabilities", res.Probabilities))
	return res, nil
}

// Flattened returns the cached network input, or nil before Classify.
func (s *Session) Flattened() []int {
	return append([]int(nil), s.flattened...)
}

func (s *Session) Grid() grid.Grid {
	return s.grid
}

func (s *Session) LargeHolds() int {
	return s.largeHolds
}

func (s *Session) Boxes() []iface.Box {
	return append([]iface.Box(nil), s.boxes...)
}

// Holds lists the Moonboard labels of the mapped holds.
func (s *Session) Holds() []string {
	return s.grid.Holds()
}

// Result returns the last classification.
func (s *Session) Result() (iface.GradeResult, bool) {
	if s.result == nil {
		return iface.GradeResult{}, false
	}
	return *s.result, true
}

// Feedback builds the record sent back for training. When the prediction was
// wrong, realGrade is the user's V grade (2 to 6).
func (s *Session) Feedback(correct bool, realGrade int, userID string) (iface.FeedbackRecord, error) {
	if s.result == nil {
		return iface.FeedbackRecord{}, iface.ErrNotClassified
	}
	ordinal := s.result.Ordinal
	if !correct {
		ordinal = engine.OrdinalOf(fmt.Sprintf("V%d", realGrade))
		if ordinal < 0 {
			return iface.FeedbackRecord{}, fmt.Errorf("%w: got V%d", iface.ErrInvalidGrade, realGrade)
		}
	}
	return iface.FeedbackRecord{
		Grade:        ordinal,
		Coordinates:  s.Flattened(),
		CorrectGrade: correct,
		UserID:       userID,
	}, nil
}

// SavedRoute snapshots the graded route for the user's saved list.
func (s *Session) SavedRoute(userID string) (iface.SavedRoute, error) {
	if s.result == nil {
		return iface.SavedRoute{}, iface.ErrNotClassified
	}
	return iface.SavedRoute{
		ID:          uuid.NewString(),
		UserID:      userID,
		Grade:       s.result.Label,
		Boxes:       s.Boxes(),
		Coordinates: s.Flattened(),
		CreatedAt:   time.Now().Unix(),
	}, nil
}
