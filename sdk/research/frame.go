package research

import (
	"strings"

	"go.uber.org/zap"
)

// Frame is one event/data unit of the push protocol:
//
//	event: <name>\n
//	data: <json>\n
//	\n
type Frame struct {
	Event string
	Data  string
}

// FrameScanner decodes an incrementally-arriving byte stream into complete
// frames. Chunk boundaries are arbitrary: a frame may span several chunks
// and one chunk may carry several frames. The trailing partial line of each
// chunk is retained for the next call.
//
// The scanner never fails; malformed input simply produces no frame.
type FrameScanner struct {
	partial string
	event   string
	data    string
	dropped int
	logger  *zap.Logger
}

// NewFrameScanner creates a scanner. A nil logger disables logging.
func NewFrameScanner(logger *zap.Logger) *FrameScanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FrameScanner{logger: logger}
}

// Scan appends a chunk and returns the frames it completed, in order.
func (s *FrameScanner) Scan(chunk []byte) []Frame {
	s.partial += string(chunk)

	var frames []Frame
	for {
		i := strings.IndexByte(s.partial, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimSuffix(s.partial[:i], "\r")
		s.partial = s.partial[i+1:]
		frames = s.consumeLine(line, frames)
	}
	return frames
}

// consumeLine applies one complete line to the pending frame state. Lines
// matching neither prefix are ignored, which keeps the scanner forward
// compatible with protocol comments and extensions.
func (s *FrameScanner) consumeLine(line string, frames []Frame) []Frame {
	switch {
	case line == "":
		if s.event != "" && s.data != "" {
			frames = append(frames, Frame{Event: s.event, Data: s.data})
		} else if s.data != "" {
			// A data line with no event name usually means the stream
			// desynchronized. Count it so operators can tell.
			s.dropped++
			s.logger.Debug("dropped frame without event name",
				zap.Int("dropped_total", s.dropped),
			)
		}
		s.event, s.data = "", ""
	case strings.HasPrefix(line, "event:"):
		s.event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
	case strings.HasPrefix(line, "data:"):
		// Single data line per frame; a repeated data line replaces the
		// pending one rather than concatenating.
		s.data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
	}
	return frames
}

// Dropped reports how many data-only frames were discarded.
func (s *FrameScanner) Dropped() int {
	return s.dropped
}
