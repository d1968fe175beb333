package entity

const (
	LandmarkCount     = 33
	LandmarkDims      = 3
	LandmarkVectorLen = LandmarkCount * LandmarkDims

	// DerivedFeatureCount is the number of scalars appended by the feature composer.
	DerivedFeatureCount = 1
	FeatureVectorLen    = LandmarkVectorLen + DerivedFeatureCount

	DefaultFrameStride = 5
)

type PixelFormat int

const (
	PixelFormatBGR24 PixelFormat = iota
	PixelFormatRGB24
)

func (p PixelFormat) String() string {
	switch p {
	case PixelFormatBGR24:
		return "bgr24"
	case PixelFormatRGB24:
		return "rgb24"
	default:
		return "unknown"
	}
}

// Frame is one decoded raster with interleaved 8-bit channels.
type Frame struct {
	Index  int
	Width  int
	Height int
	Format PixelFormat
	Pix    []byte
}

type Landmark struct {
	X, Y, Z float64
}

// LandmarkVector holds 33 landmarks flattened as x,y,z triples.
type LandmarkVector []float64

func ZeroLandmarks() LandmarkVector {
	return make(LandmarkVector, LandmarkVectorLen)
}

func FlattenLandmarks(lms []Landmark) LandmarkVector {
	v := make(LandmarkVector, 0, len(lms)*LandmarkDims)
	for _, lm := range lms {
		v = append(v, lm.X, lm.Y, lm.Z)
	}
	return v
}

// PoseResult makes "no person found" explicit instead of relying on an all-zero vector.
// When Detected is false, Landmarks is the zero vector.
type PoseResult struct {
	FrameIndex int
	Landmarks  LandmarkVector
	Detected   bool
}

type FeatureVector struct {
	FrameIndex int
	Values     []float64
	Detected   bool
}

// FeatureMatrix rows share one width and are ordered by frame index.
type FeatureMatrix struct {
	Rows  [][]float64
	Width int
}

func (m FeatureMatrix) Len() int { return len(m.Rows) }

type HeightEstimate struct {
	Height        float64 `json:"estimated_height"`
	FramesSampled int     `json:"frames_sampled"`
	FramesUsed    int     `json:"frames_used"`
}
