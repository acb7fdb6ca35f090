// Package proctor implements the per-session assessment pipeline: question
// sequencing, frame ingestion and violation aggregation, and final scoring.
// Each session is an independent unit of state; operations on different
// sessions never contend.
package proctor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zaqqye/interview_backend_v1/internal/detection"
	"github.com/zaqqye/interview_backend_v1/internal/evidence"
	"github.com/zaqqye/interview_backend_v1/internal/models"
)

// Publisher receives live events for dashboards. Implementations must not
// block; a nil Publisher disables the feed.
type Publisher interface {
	PublishViolation(v models.Violation)
	PublishSessionStatus(sessionID, status string)
}

type Options struct {
	InterviewLength int           // questions per session
	FrameSampleRate int64         // process 1 of every N frames
	FrameQueueSize  int           // pending frames per session before drop-oldest
	IdleTTL         time.Duration // abandoned sessions terminated after this
}

func (o Options) withDefaults() Options {
	if o.InterviewLength <= 0 {
		o.InterviewLength = 5
	}
	if o.FrameSampleRate <= 0 {
		o.FrameSampleRate = 2
	}
	if o.FrameQueueSize <= 0 {
		o.FrameQueueSize = 4
	}
	if o.IdleTTL <= 0 {
		o.IdleTTL = 30 * time.Minute
	}
	return o
}

type Deps struct {
	DB       *gorm.DB
	Detector detection.Detector // nil disables frame analysis
	Policy   detection.Policy   // zero value falls back to DefaultPolicy
	Evidence *evidence.Store
	Bank     *QuestionBank
	Grader   Grader
	Feed     Publisher
}

type Service struct {
	db       *gorm.DB
	detector detection.Detector
	policy   detection.Policy
	evidence *evidence.Store
	bank     *QuestionBank
	grader   Grader
	feed     Publisher
	opts     Options

	mu       sync.Mutex
	sessions map[string]*sessionRuntime

	stop     chan struct{}
	stopOnce sync.Once
}

func New(d Deps, opts Options) *Service {
	if d.Policy.PersonLabel == "" {
		d.Policy = detection.DefaultPolicy()
	}
	if d.Evidence == nil {
		d.Evidence = evidence.NewStore("frames")
	}
	if d.Bank == nil {
		d.Bank = NewQuestionBank()
	}
	if d.Grader == nil {
		d.Grader = NewRandomGrader()
	}
	s := &Service{
		db:       d.DB,
		detector: d.Detector,
		policy:   d.Policy,
		evidence: d.Evidence,
		bank:     d.Bank,
		grader:   d.Grader,
		feed:     d.Feed,
		opts:     opts.withDefaults(),
		sessions: make(map[string]*sessionRuntime),
		stop:     make(chan struct{}),
	}
	go s.janitor()
	return s
}

// Close stops the janitor and every session worker.
func (s *Service) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.mu.Lock()
		defer s.mu.Unlock()
		for id, rt := range s.sessions {
			close(rt.quit)
			delete(s.sessions, id)
		}
	})
}

// sessionRuntime serializes mutations of a single session and feeds its
// frame worker. Lightweight operations take mu directly; detection runs on
// the worker goroutine without holding it.
type sessionRuntime struct {
	sessionID string
	mu        sync.Mutex
	frames    chan *frameJob
	quit      chan struct{}
	lastSeen  atomic.Int64 // unix nanos
}

func newSessionRuntime(sessionID string, queueSize int) *sessionRuntime {
	rt := &sessionRuntime{
		sessionID: sessionID,
		frames:    make(chan *frameJob, queueSize),
		quit:      make(chan struct{}),
	}
	rt.touch()
	return rt
}

func (rt *sessionRuntime) touch() {
	rt.lastSeen.Store(time.Now().UnixNano())
}

// runtime returns the live runtime for a session, creating one lazily so
// sessions survive a process restart.
func (s *Service) runtime(sessionID string) (*sessionRuntime, error) {
	s.mu.Lock()
	rt, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if ok {
		rt.touch()
		return rt, nil
	}

	var sess models.InterviewSession
	if err := s.db.Select("id").Where("session_id = ?", sessionID).First(&sess).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rt, ok := s.sessions[sessionID]; ok {
		rt.touch()
		return rt, nil
	}
	rt = newSessionRuntime(sessionID, s.opts.FrameQueueSize)
	s.sessions[sessionID] = rt
	go s.frameWorker(rt)
	return rt, nil
}

func (s *Service) loadSession(ctx context.Context, sessionID string) (models.InterviewSession, error) {
	var sess models.InterviewSession
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&sess).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return sess, ErrSessionNotFound
		}
		return sess, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

type StartedSession struct {
	SessionID string
	Question  models.InterviewQuestion
}

// StartSession creates a new active session and issues question #1. A
// non-zero interviewID attaches the session to that scheduled interview;
// its outcome is written back on Finalize.
func (s *Service) StartSession(ctx context.Context, interviewID uint) (*StartedSession, error) {
	sessionID := uuid.NewString()
	sess := models.InterviewSession{
		SessionID: sessionID,
		Status:    models.SessionActive,
		StartTime: time.Now().UTC(),
	}
	q := s.bank.Draw(sessionID, 1)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&sess).Error; err != nil {
			return err
		}
		if interviewID != 0 {
			res := tx.Model(&models.Interview{}).
				Where("id = ? AND session_id IS NULL", interviewID).
				Update("session_id", sessionID)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrInterviewNotFound
			}
		}
		return tx.Create(&q).Error
	})
	if err != nil {
		if errors.Is(err, ErrInterviewNotFound) {
			return nil, ErrInterviewNotFound
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.mu.Lock()
	rt := newSessionRuntime(sessionID, s.opts.FrameQueueSize)
	s.sessions[sessionID] = rt
	go s.frameWorker(rt)
	s.mu.Unlock()

	s.publishStatus(sessionID, models.SessionActive)
	return &StartedSession{SessionID: sessionID, Question: q}, nil
}

type Advance struct {
	Completed bool
	Question  *models.InterviewQuestion
}

// NextQuestion records the prior answer (if any) against the question
// currently on screen, advances the index, and either issues the next
// question or completes the session when the interview length is reached.
func (s *Service) NextQuestion(ctx context.Context, sessionID, answer string) (*Advance, error) {
	rt, err := s.runtime(sessionID)
	if err != nil {
		return nil, err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()

	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != models.SessionActive {
		return nil, ErrSessionClosed
	}

	adv := &Advance{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if answer != "" {
			if err := recordAnswer(tx, sess, answer); err != nil {
				return err
			}
		}
		sess.CurrentQuestionIndex++
		if sess.CurrentQuestionIndex >= s.opts.InterviewLength {
			now := time.Now().UTC()
			sess.Status = models.SessionCompleted
			sess.EndTime = &now
			adv.Completed = true
			return tx.Save(&sess).Error
		}
		q := s.bank.Draw(sessionID, sess.CurrentQuestionIndex+1)
		if err := tx.Save(&sess).Error; err != nil {
			return err
		}
		if err := tx.Create(&q).Error; err != nil {
			return err
		}
		adv.Question = &q
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("advance question: %w", err)
	}

	if adv.Completed {
		s.publishStatus(sessionID, models.SessionCompleted)
	}
	return adv, nil
}

// SubmitAnswer records free text against the question currently on screen.
// If no such question exists the answer is silently dropped, which keeps
// out-of-order client retries harmless.
func (s *Service) SubmitAnswer(ctx context.Context, sessionID, answer string) error {
	rt, err := s.runtime(sessionID)
	if err != nil {
		return err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()

	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := recordAnswer(s.db.WithContext(ctx), sess, answer); err != nil {
		return fmt.Errorf("record answer: %w", err)
	}
	return nil
}

// recordAnswer targets the question whose ordinal equals the session's
// current index + 1 (the most recently issued one). Resubmission for the
// same question is last-write-wins.
func recordAnswer(tx *gorm.DB, sess models.InterviewSession, answer string) error {
	var q models.InterviewQuestion
	err := tx.Where("session_id = ? AND question_number = ?", sess.SessionID, sess.CurrentQuestionIndex+1).
		First(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	var existing models.InterviewAnswer
	err = tx.Where("question_id_ref = ?", q.ID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Create(&models.InterviewAnswer{
			SessionID:     sess.SessionID,
			QuestionIDRef: q.ID,
			Answer:        answer,
		}).Error
	}
	if err != nil {
		return err
	}
	existing.Answer = answer
	return tx.Save(&existing).Error
}

// RecordTabChange increments the tab counter and appends a tab_change
// violation. Deliberately permitted in any session status so late events
// still land in the ledger.
func (s *Service) RecordTabChange(ctx context.Context, sessionID string) (int, error) {
	rt, err := s.runtime(sessionID)
	if err != nil {
		return 0, err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()

	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return 0, err
	}

	sess.TabChanges++
	v := models.Violation{
		SessionID:     sessionID,
		ViolationType: models.ViolationTabChange,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&sess).Error; err != nil {
			return err
		}
		return tx.Create(&v).Error
	})
	if err != nil {
		return 0, fmt.Errorf("record tab change: %w", err)
	}

	s.publishViolation(v)
	return sess.TabChanges, nil
}

// Terminate moves an active session to terminated (supervisor action).
func (s *Service) Terminate(ctx context.Context, sessionID string) error {
	rt, err := s.runtime(sessionID)
	if err != nil {
		return err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()

	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.Status != models.SessionActive {
		return ErrSessionClosed
	}
	now := time.Now().UTC()
	sess.Status = models.SessionTerminated
	sess.EndTime = &now
	if err := s.db.WithContext(ctx).Save(&sess).Error; err != nil {
		return fmt.Errorf("terminate session: %w", err)
	}
	s.publishStatus(sessionID, models.SessionTerminated)
	return nil
}

// Finalize closes the session if still open and computes the result from
// the violation ledger and answer count. Integrity is deterministic given
// the ledger; technical/behavioral come from the (random) grader.
func (s *Service) Finalize(ctx context.Context, sessionID string) (*Result, error) {
	rt, err := s.runtime(sessionID)
	if err != nil {
		return nil, err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()

	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status == models.SessionActive {
		now := time.Now().UTC()
		sess.Status = models.SessionCompleted
		sess.EndTime = &now
		if err := s.db.WithContext(ctx).Save(&sess).Error; err != nil {
			return nil, fmt.Errorf("close session: %w", err)
		}
		s.publishStatus(sessionID, models.SessionCompleted)
	}

	var ledger []models.Violation
	if err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).
		Order("created_at, id").Find(&ledger).Error; err != nil {
		return nil, fmt.Errorf("load violations: %w", err)
	}

	var answered int64
	if err := s.db.WithContext(ctx).Model(&models.InterviewAnswer{}).
		Where("session_id = ?", sessionID).Count(&answered).Error; err != nil {
		return nil, fmt.Errorf("count answers: %w", err)
	}

	result := Score(s.grader, sess, ledger, answered)
	if err := s.backfillInterview(ctx, sessionID, result); err != nil {
		return nil, fmt.Errorf("update interview: %w", err)
	}
	return &result, nil
}

// backfillInterview writes the outcome to the scheduled interview attached
// to this session, if any. Only the first finalization is recorded; later
// recomputations (with fresh graded components) leave it untouched.
func (s *Service) backfillInterview(ctx context.Context, sessionID string, res Result) error {
	return s.db.WithContext(ctx).Model(&models.Interview{}).
		Where("session_id = ? AND completed_at IS NULL", sessionID).
		Updates(map[string]interface{}{
			"technical_score":  res.TechnicalScore,
			"behavioral_score": res.BehavioralScore,
			"integrity_score":  res.IntegrityScore,
			"overall_score":    res.OverallScore,
			"recommendation":   res.Recommendation,
			"completed_at":     time.Now().UTC(),
			"status":           models.InterviewCompleted,
		}).Error
}

func (s *Service) publishViolation(v models.Violation) {
	if s.feed != nil {
		s.feed.PublishViolation(v)
	}
}

func (s *Service) publishStatus(sessionID, status string) {
	if s.feed != nil {
		s.feed.PublishSessionStatus(sessionID, status)
	}
}

// janitor reaps runtimes for sessions the client silently abandoned; the
// session row is marked terminated and its worker shut down.
func (s *Service) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.reapIdle()
		}
	}
}

func (s *Service) reapIdle() {
	cutoff := time.Now().Add(-s.opts.IdleTTL).UnixNano()

	var stale []*sessionRuntime
	s.mu.Lock()
	for id, rt := range s.sessions {
		if rt.lastSeen.Load() < cutoff {
			delete(s.sessions, id)
			stale = append(stale, rt)
		}
	}
	s.mu.Unlock()

	for _, rt := range stale {
		close(rt.quit)
		s.terminateAbandoned(rt)
	}
}

func (s *Service) terminateAbandoned(rt *sessionRuntime) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	var sess models.InterviewSession
	if err := s.db.Where("session_id = ?", rt.sessionID).First(&sess).Error; err != nil {
		return
	}
	if sess.Status != models.SessionActive {
		return
	}
	now := time.Now().UTC()
	sess.Status = models.SessionTerminated
	sess.EndTime = &now
	if err := s.db.Save(&sess).Error; err != nil {
		log.Printf("proctor: terminate abandoned session %s: %v", rt.sessionID, err)
		return
	}
	s.publishStatus(rt.sessionID, models.SessionTerminated)
	log.Printf("proctor: terminated abandoned session %s", rt.sessionID)
}
