package proctor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/zaqqye/interview_backend_v1/internal/models"
)

const (
	FrameSkipped   = "skipped"
	FrameDropped   = "dropped"
	FrameClean     = "clean"
	FrameViolation = "violation_detected"
)

// FrameReport is the acknowledgement for one ingested frame.
type FrameReport struct {
	FrameNumber int64              `json:"frame_number"`
	Status      string             `json:"status"`
	Processed   bool               `json:"processed"`
	PersonCount int                `json:"person_count"`
	Violations  []models.Violation `json:"violations"`
	SavedPath   string             `json:"saved_path,omitempty"`
}

type frameResult struct {
	report FrameReport
	err    error
}

type frameJob struct {
	ctx    context.Context
	number int64
	img    image.Image
	done   chan frameResult
}

func (j *frameJob) finish(report FrameReport, err error) {
	select {
	case j.done <- frameResult{report: report, err: err}:
	default:
	}
}

// IngestFrame counts every received frame, acknowledges off-sample frames
// as skipped, and hands sampled frames to the session's worker. The frame
// counter reflects all received frames regardless of processing.
func (s *Service) IngestFrame(ctx context.Context, sessionID string, frame []byte) (FrameReport, error) {
	rt, err := s.runtime(sessionID)
	if err != nil {
		return FrameReport{}, err
	}
	if s.detector == nil {
		return FrameReport{}, ErrDetectorUnavailable
	}

	rt.mu.Lock()
	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		rt.mu.Unlock()
		return FrameReport{}, err
	}
	sess.FrameCounter++
	n := sess.FrameCounter
	err = s.db.WithContext(ctx).Model(&models.InterviewSession{}).
		Where("id = ?", sess.ID).Update("frame_counter", n).Error
	rt.mu.Unlock()
	if err != nil {
		return FrameReport{}, fmt.Errorf("update frame counter: %w", err)
	}

	if n%s.opts.FrameSampleRate != 0 {
		return FrameReport{FrameNumber: n, Status: FrameSkipped}, nil
	}

	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return FrameReport{FrameNumber: n}, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}

	job := &frameJob{ctx: ctx, number: n, img: img, done: make(chan frameResult, 1)}
	rt.enqueue(job)

	select {
	case res := <-job.done:
		return res.report, res.err
	case <-rt.quit:
		return FrameReport{FrameNumber: n, Status: FrameDropped}, nil
	case <-ctx.Done():
		return FrameReport{FrameNumber: n, Status: FrameDropped}, ctx.Err()
	}
}

// enqueue adds the job to the session's bounded queue, displacing the
// oldest pending frame when full. Stale frames are worth less than recent
// ones, so the freshest frame always gets a slot. Once the runtime has
// shut down the job is acknowledged as dropped instead of queued.
func (rt *sessionRuntime) enqueue(job *frameJob) {
	for {
		select {
		case <-rt.quit:
			job.finish(FrameReport{FrameNumber: job.number, Status: FrameDropped}, nil)
			return
		default:
		}
		select {
		case rt.frames <- job:
			return
		default:
		}
		select {
		case old := <-rt.frames:
			old.finish(FrameReport{FrameNumber: old.number, Status: FrameDropped}, nil)
		default:
		}
	}
}

func (s *Service) frameWorker(rt *sessionRuntime) {
	for {
		select {
		case <-rt.quit:
			for {
				select {
				case job := <-rt.frames:
					job.finish(FrameReport{FrameNumber: job.number, Status: FrameDropped}, nil)
				default:
					return
				}
			}
		case job := <-rt.frames:
			report, err := s.processFrame(rt, job)
			job.finish(report, err)
		}
	}
}

func (s *Service) processFrame(rt *sessionRuntime, job *frameJob) (FrameReport, error) {
	// Detection runs off the session lock so tab changes and answers are
	// never stalled behind a slow inference call.
	dets, err := s.detector.Detect(job.ctx, job.img)
	if err != nil {
		return FrameReport{FrameNumber: job.number}, fmt.Errorf("%w: %v", ErrDetectorUnavailable, err)
	}

	violations, personCount := Classify(dets, s.policy)
	report := FrameReport{
		FrameNumber: job.number,
		Status:      FrameClean,
		Processed:   true,
		PersonCount: personCount,
	}
	if len(violations) == 0 {
		return report, nil
	}

	// One evidence image per frame, shared by every violation in the batch.
	path, err := s.evidence.Save(rt.sessionID, job.number, job.img)
	if err != nil {
		return report, fmt.Errorf("save evidence: %w", err)
	}
	for i := range violations {
		violations[i].SessionID = rt.sessionID
		violations[i].ImagePath = path
	}

	rt.mu.Lock()
	err = s.db.Create(&violations).Error
	rt.mu.Unlock()
	if err != nil {
		return report, fmt.Errorf("persist violations: %w", err)
	}

	for _, v := range violations {
		s.publishViolation(v)
	}
	report.Status = FrameViolation
	report.Violations = violations
	report.SavedPath = path
	return report, nil
}
