package odometry

import "go.viam.com/laserodometry/lidar"

// FrameStore owns the reference frame and the candidate of the step in flight.
// Every frame it lets go of is released exactly once.
type FrameStore struct {
	reference *lidar.PointFrame
	candidate *lidar.PointFrame
}

// Install makes frame the reference, releasing any previous frames.
func (s *FrameStore) Install(frame *lidar.PointFrame) {
	s.Reset()
	s.reference = frame
}

// SetCandidate takes ownership of a freshly built candidate, releasing any previous one.
func (s *FrameStore) SetCandidate(frame *lidar.PointFrame) {
	if s.candidate != nil && s.candidate != frame {
		s.candidate.Release()
	}
	s.candidate = frame
}

// Promote releases the reference and moves the candidate into its place.
func (s *FrameStore) Promote() {
	if s.candidate == nil {
		return
	}
	s.reference.Release()
	s.reference = s.candidate
	s.candidate = nil
}

// Discard releases the candidate and keeps the reference.
func (s *FrameStore) Discard() {
	s.candidate.Release()
	s.candidate = nil
}

// Reference returns the reference frame, or nil before Install.
func (s *FrameStore) Reference() *lidar.PointFrame {
	return s.reference
}

// Candidate returns the candidate frame, or nil when no step is in flight.
func (s *FrameStore) Candidate() *lidar.PointFrame {
	return s.candidate
}

// Reset releases both frames.
func (s *FrameStore) Reset() {
	s.candidate.Release()
	s.reference.Release()
	s.candidate = nil
	s.reference = nil
}
