package iface

// Box is a detected hold in image pixel space. X and Y are the box center.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	ID     int     `json:"id"`
}

// ImageExtent is the size of the analysed image in pixels.
type ImageExtent struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type GradeResult struct {
	Ordinal       int       `json:"ordinal"`
	Label         string    `json:"grade"`
	Probabilities []float64 `json:"probabilities"`
}

// FeedbackRecord is what gets persisted when a user confirms or corrects a
// predicted grade. Coordinates is the route's flattened grid.
type FeedbackRecord struct {
	Grade        int    `json:"Grade"`
	Coordinates  []int  `json:"Coordinates"`
	CorrectGrade bool   `json:"correctGrade"`
	UserID       string `json:"userID"`
}

type SavedRoute struct {
	ID          string `json:"id"`
	UserID      string `json:"userID"`
	Grade       string `json:"grade"`
	Boxes       []Box  `json:"boxes"`
	Coordinates []int  `json:"coordinates"`
	CreatedAt   int64  `json:"createdAt"`
}
