package proctor

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zaqqye/interview_backend_v1/internal/database"
	"github.com/zaqqye/interview_backend_v1/internal/detection"
	"github.com/zaqqye/interview_backend_v1/internal/evidence"
	"github.com/zaqqye/interview_backend_v1/internal/models"
)

type stubDetector struct {
	mu    sync.Mutex
	dets  []detection.Detection
	err   error
	delay time.Duration
	n     int
}

func (d *stubDetector) Detect(ctx context.Context, img image.Image) ([]detection.Detection, error) {
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.n++
	return d.dets, d.err
}

func (d *stubDetector) calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.n
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a single connection keeps the in-memory database alive and shared
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	return db
}

func newTestService(t *testing.T, det detection.Detector) *Service {
	t.Helper()
	return newTestServiceOpts(t, det, Options{})
}

func newTestServiceOpts(t *testing.T, det detection.Detector, opts Options) *Service {
	t.Helper()
	svc := New(Deps{
		DB:       newTestDB(t),
		Detector: det,
		Evidence: evidence.NewStore(t.TempDir()),
	}, opts)
	t.Cleanup(svc.Close)
	return svc
}

func jpegFrame(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestStartSessionIssuesFirstQuestion(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	started, err := svc.StartSession(ctx, 0)
	require.NoError(t, err)
	require.NotEmpty(t, started.SessionID)
	assert.Equal(t, 1, started.Question.QuestionNumber)
	assert.Contains(t, []string{models.QuestionTechnical, models.QuestionBehavioral}, started.Question.QuestionType)

	var sess models.InterviewSession
	require.NoError(t, svc.db.Where("session_id = ?", started.SessionID).First(&sess).Error)
	assert.Equal(t, models.SessionActive, sess.Status)
	assert.Equal(t, 0, sess.CurrentQuestionIndex)
	assert.Equal(t, int64(0), sess.FrameCounter)
	assert.Nil(t, sess.EndTime)
}

func TestQuestionNumberingGaplessUntilCompletion(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	started, err := svc.StartSession(ctx, 0)
	require.NoError(t, err)

	for want := 2; want <= 5; want++ {
		adv, err := svc.NextQuestion(ctx, started.SessionID, "")
		require.NoError(t, err)
		require.False(t, adv.Completed)
		assert.Equal(t, want, adv.Question.QuestionNumber)
	}

	adv, err := svc.NextQuestion(ctx, started.SessionID, "")
	require.NoError(t, err)
	assert.True(t, adv.Completed)
	assert.Nil(t, adv.Question)

	var sess models.InterviewSession
	require.NoError(t, svc.db.Where("session_id = ?", started.SessionID).First(&sess).Error)
	assert.Equal(t, models.SessionCompleted, sess.Status)
	require.NotNil(t, sess.EndTime)

	var questions []models.InterviewQuestion
	require.NoError(t, svc.db.Where("session_id = ?", started.SessionID).
		Order("question_number").Find(&questions).Error)
	require.Len(t, questions, 5)
	for i, q := range questions {
		assert.Equal(t, i+1, q.QuestionNumber)
	}

	// the session is closed, further advances fail
	_, err = svc.NextQuestion(ctx, started.SessionID, "")
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestAnswerTargetsMostRecentlyIssuedQuestion(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	started, err := svc.StartSession(ctx, 0)
	require.NoError(t, err)

	// answer submitted between start and the first advance lands on Q1
	require.NoError(t, svc.SubmitAnswer(ctx, started.SessionID, "draft"))

	var q1 models.InterviewQuestion
	require.NoError(t, svc.db.Where("session_id = ? AND question_number = 1", started.SessionID).First(&q1).Error)
	var ans models.InterviewAnswer
	require.NoError(t, svc.db.Where("question_id_ref = ?", q1.ID).First(&ans).Error)
	assert.Equal(t, "draft", ans.Answer)

	// advancing with an answer overwrites it: last write wins
	_, err = svc.NextQuestion(ctx, started.SessionID, "final")
	require.NoError(t, err)
	require.NoError(t, svc.db.Where("question_id_ref = ?", q1.ID).First(&ans).Error)
	assert.Equal(t, "final", ans.Answer)

	var count int64
	require.NoError(t, svc.db.Model(&models.InterviewAnswer{}).
		Where("session_id = ?", started.SessionID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// the next answer targets Q2, not Q1
	require.NoError(t, svc.SubmitAnswer(ctx, started.SessionID, "second"))
	var q2 models.InterviewQuestion
	require.NoError(t, svc.db.Where("session_id = ? AND question_number = 2", started.SessionID).First(&q2).Error)
	var ans2 models.InterviewAnswer
	require.NoError(t, svc.db.Where("question_id_ref = ?", q2.ID).First(&ans2).Error)
	assert.Equal(t, "second", ans2.Answer)
}

func TestAnswerWithoutMatchingQuestionSilentlyDropped(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	started, err := svc.StartSession(ctx, 0)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := svc.NextQuestion(ctx, started.SessionID, "")
		require.NoError(t, err)
	}

	// session completed, index points past the last question
	require.NoError(t, svc.SubmitAnswer(ctx, started.SessionID, "late retry"))

	var count int64
	require.NoError(t, svc.db.Model(&models.InterviewAnswer{}).
		Where("session_id = ?", started.SessionID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestRecordTabChangeAppendsOneViolationPerCall(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	started, err := svc.StartSession(ctx, 0)
	require.NoError(t, err)

	for want := 1; want <= 3; want++ {
		total, err := svc.RecordTabChange(ctx, started.SessionID)
		require.NoError(t, err)
		assert.Equal(t, want, total)
	}

	// still permitted after the session completes
	_, err = svc.Finalize(ctx, started.SessionID)
	require.NoError(t, err)
	total, err := svc.RecordTabChange(ctx, started.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 4, total)

	var count int64
	require.NoError(t, svc.db.Model(&models.Violation{}).
		Where("session_id = ? AND violation_type = ?", started.SessionID, models.ViolationTabChange).
		Count(&count).Error)
	assert.Equal(t, int64(4), count)
}

func TestConcurrentTabChanges(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	started, err := svc.StartSession(ctx, 0)
	require.NoError(t, err)

	const workers = 8
	const perWorker = 5
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_, err := svc.RecordTabChange(ctx, started.SessionID)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	var sess models.InterviewSession
	require.NoError(t, svc.db.Where("session_id = ?", started.SessionID).First(&sess).Error)
	assert.Equal(t, workers*perWorker, sess.TabChanges)

	var count int64
	require.NoError(t, svc.db.Model(&models.Violation{}).
		Where("session_id = ?", started.SessionID).Count(&count).Error)
	assert.Equal(t, int64(workers*perWorker), count)
}

func TestFrameCounterCountsEveryReceivedFrame(t *testing.T) {
	det := &stubDetector{}
	svc := newTestService(t, det)
	ctx := context.Background()

	started, err := svc.StartSession(ctx, 0)
	require.NoError(t, err)

	frame := jpegFrame(t)
	statuses := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		report, err := svc.IngestFrame(ctx, started.SessionID, frame)
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), report.FrameNumber)
		statuses = append(statuses, report.Status)
	}

	// odd frames skipped, even frames analyzed
	assert.Equal(t, []string{FrameSkipped, FrameClean, FrameSkipped, FrameClean, FrameSkipped}, statuses)
	assert.Equal(t, 2, det.calls())

	var sess models.InterviewSession
	require.NoError(t, svc.db.Where("session_id = ?", started.SessionID).First(&sess).Error)
	assert.Equal(t, int64(5), sess.FrameCounter)
}

func TestIngestWithoutDetector(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	started, err := svc.StartSession(ctx, 0)
	require.NoError(t, err)

	_, err = svc.IngestFrame(ctx, started.SessionID, jpegFrame(t))
	assert.ErrorIs(t, err, ErrDetectorUnavailable)

	// unavailable capability does not consume frame numbers
	var sess models.InterviewSession
	require.NoError(t, svc.db.Where("session_id = ?", started.SessionID).First(&sess).Error)
	assert.Equal(t, int64(0), sess.FrameCounter)
}

func TestIngestInvalidPayload(t *testing.T) {
	svc := newTestService(t, &stubDetector{})
	ctx := context.Background()

	started, err := svc.StartSession(ctx, 0)
	require.NoError(t, err)

	// frame 1 is off-sample: acknowledged without decoding
	report, err := svc.IngestFrame(ctx, started.SessionID, []byte("not an image"))
	require.NoError(t, err)
	assert.Equal(t, FrameSkipped, report.Status)

	// frame 2 is sampled and must decode
	_, err = svc.IngestFrame(ctx, started.SessionID, []byte("not an image"))
	assert.ErrorIs(t, err, ErrInvalidFrame)

	var sess models.InterviewSession
	require.NoError(t, svc.db.Where("session_id = ?", started.SessionID).First(&sess).Error)
	assert.Equal(t, int64(2), sess.FrameCounter)
}

func TestIngestUnknownSession(t *testing.T) {
	svc := newTestService(t, &stubDetector{})
	_, err := svc.IngestFrame(context.Background(), "00000000-0000-0000-0000-000000000000", jpegFrame(t))
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestProcessedFrameRecordsViolationBatch(t *testing.T) {
	det := &stubDetector{dets: []detection.Detection{
		{Label: "cell phone", Confidence: 0.8},
		{Label: "person", Confidence: 0.9},
		{Label: "person", Confidence: 0.85},
	}}
	svc := newTestService(t, det)
	ctx := context.Background()

	started, err := svc.StartSession(ctx, 0)
	require.NoError(t, err)

	frame := jpegFrame(t)
	_, err = svc.IngestFrame(ctx, started.SessionID, frame) // frame 1: skipped
	require.NoError(t, err)
	report, err := svc.IngestFrame(ctx, started.SessionID, frame) // frame 2: processed
	require.NoError(t, err)

	assert.Equal(t, FrameViolation, report.Status)
	assert.True(t, report.Processed)
	assert.Equal(t, 2, report.PersonCount)
	require.Len(t, report.Violations, 2)
	assert.Equal(t, models.ViolationObjectDetected, report.Violations[0].ViolationType)
	assert.Equal(t, models.ViolationMultiplePersons, report.Violations[1].ViolationType)
	assert.Equal(t, 2, *report.Violations[1].PersonCount)

	// both violations share one saved evidence frame
	require.NotEmpty(t, report.SavedPath)
	assert.Equal(t, report.SavedPath, report.Violations[0].ImagePath)
	assert.Equal(t, report.SavedPath, report.Violations[1].ImagePath)
	_, err = os.Stat(report.SavedPath)
	assert.NoError(t, err)

	var ledger []models.Violation
	require.NoError(t, svc.db.Where("session_id = ?", started.SessionID).Find(&ledger).Error)
	assert.Len(t, ledger, 2)
}

func TestFinalizeCleanSession(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	started, err := svc.StartSession(ctx, 0)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := svc.NextQuestion(ctx, started.SessionID, "an answer")
		require.NoError(t, err)
	}

	result, err := svc.Finalize(ctx, started.SessionID)
	require.NoError(t, err)

	assert.Equal(t, 100, result.IntegrityScore)
	assert.Equal(t, int64(5), result.QuestionsAnswered)
	assert.Equal(t, 0, result.CheatingViolations)
	assert.Equal(t, 0, result.TabChanges)
	assert.Empty(t, result.Violations)

	wantOverall := float64(result.TechnicalScore+result.BehavioralScore+100) / 3
	assert.InDelta(t, wantOverall, result.OverallScore, 0.005)
	if result.OverallScore >= 70 {
		assert.Equal(t, RecommendProceed, result.Recommendation)
	} else {
		assert.Equal(t, RecommendEvaluate, result.Recommendation)
	}
}

func TestFinalizePenalizesLedger(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	started, err := svc.StartSession(ctx, 0)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.db.Create(&models.Violation{
			SessionID:     started.SessionID,
			ViolationType: models.ViolationObjectDetected,
			ObjectName:    "cell phone",
		}).Error)
	}
	for i := 0; i < 4; i++ {
		_, err := svc.RecordTabChange(ctx, started.SessionID)
		require.NoError(t, err)
	}

	result, err := svc.Finalize(ctx, started.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 3, result.CheatingViolations)
	assert.Equal(t, 4, result.TabChanges)
	assert.Equal(t, 50, result.IntegrityScore)
	assert.Len(t, result.Violations, 7)

	// recomputing keeps integrity stable even though the graded
	// components are randomized placeholders
	again, err := svc.Finalize(ctx, started.SessionID)
	require.NoError(t, err)
	assert.Equal(t, result.IntegrityScore, again.IntegrityScore)
}

func TestFinalizeUnknownSession(t *testing.T) {
	svc := newTestService(t, nil)
	_, err := svc.Finalize(context.Background(), "11111111-1111-1111-1111-111111111111")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestTerminate(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	started, err := svc.StartSession(ctx, 0)
	require.NoError(t, err)

	require.NoError(t, svc.Terminate(ctx, started.SessionID))

	var sess models.InterviewSession
	require.NoError(t, svc.db.Where("session_id = ?", started.SessionID).First(&sess).Error)
	assert.Equal(t, models.SessionTerminated, sess.Status)
	require.NotNil(t, sess.EndTime)

	// no transition leaves a closed state
	assert.ErrorIs(t, svc.Terminate(ctx, started.SessionID), ErrSessionClosed)
	_, err = svc.NextQuestion(ctx, started.SessionID, "")
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestIngestUnknownSessionWithoutDetector(t *testing.T) {
	svc := newTestService(t, nil)
	_, err := svc.IngestFrame(context.Background(), "33333333-3333-3333-3333-333333333333", jpegFrame(t))
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestFrameQueueDropsOldestUnderLoad(t *testing.T) {
	det := &stubDetector{delay: 150 * time.Millisecond}
	svc := newTestServiceOpts(t, det, Options{FrameQueueSize: 1})
	ctx := context.Background()

	started, err := svc.StartSession(ctx, 0)
	require.NoError(t, err)

	frame := jpegFrame(t)
	const frames = 12
	statuses := make(chan string, frames)
	var wg sync.WaitGroup
	for i := 0; i < frames; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			report, err := svc.IngestFrame(ctx, started.SessionID, frame)
			assert.NoError(t, err)
			statuses <- report.Status
		}()
	}

	// lightweight traffic must not stall behind the busy detector
	tabDone := make(chan struct{})
	go func() {
		defer close(tabDone)
		_, err := svc.RecordTabChange(ctx, started.SessionID)
		assert.NoError(t, err)
	}()
	select {
	case <-tabDone:
	case <-time.After(2 * time.Second):
		t.Fatal("tab change stalled behind frame processing")
	}

	wg.Wait()
	close(statuses)
	counts := map[string]int{}
	for st := range statuses {
		counts[st]++
	}

	// every frame is counted and acknowledged; overflow displaces the
	// oldest queued frame rather than blocking the ingest call
	assert.Equal(t, frames/2, counts[FrameSkipped])
	assert.Equal(t, frames/2, counts[FrameClean]+counts[FrameDropped])
	assert.GreaterOrEqual(t, counts[FrameDropped], 1)
	assert.Equal(t, counts[FrameClean], det.calls())

	var sess models.InterviewSession
	require.NoError(t, svc.db.Where("session_id = ?", started.SessionID).First(&sess).Error)
	assert.Equal(t, int64(frames), sess.FrameCounter)
}

func TestEnqueueAfterShutdownDropsJob(t *testing.T) {
	rt := newSessionRuntime("shutdown-session", 1)
	close(rt.quit)

	job := &frameJob{number: 2, done: make(chan frameResult, 1)}
	rt.enqueue(job)

	res := <-job.done
	require.NoError(t, res.err)
	assert.Equal(t, FrameDropped, res.report.Status)
}

func TestReapIdleTerminatesAbandonedSessions(t *testing.T) {
	svc := newTestServiceOpts(t, nil, Options{IdleTTL: time.Millisecond})
	ctx := context.Background()

	abandoned, err := svc.StartSession(ctx, 0)
	require.NoError(t, err)
	finished, err := svc.StartSession(ctx, 0)
	require.NoError(t, err)
	_, err = svc.Finalize(ctx, finished.SessionID)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	svc.reapIdle()

	var sess models.InterviewSession
	require.NoError(t, svc.db.Where("session_id = ?", abandoned.SessionID).First(&sess).Error)
	assert.Equal(t, models.SessionTerminated, sess.Status)
	require.NotNil(t, sess.EndTime)

	// sessions that already closed keep their status
	var finishedSess models.InterviewSession
	require.NoError(t, svc.db.Where("session_id = ?", finished.SessionID).First(&finishedSess).Error)
	assert.Equal(t, models.SessionCompleted, finishedSess.Status)

	svc.mu.Lock()
	remaining := len(svc.sessions)
	svc.mu.Unlock()
	assert.Equal(t, 0, remaining)
}

func TestStartSessionUnknownInterview(t *testing.T) {
	svc := newTestService(t, nil)
	_, err := svc.StartSession(context.Background(), 12345)
	assert.ErrorIs(t, err, ErrInterviewNotFound)
}

func TestFinalizeBackfillsLinkedInterview(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	iv := models.Interview{
		CandidateIDRef: 1,
		JobIDRef:       1,
		ScheduledAt:    time.Now().Add(time.Hour),
		Type:           "both",
		Status:         models.InterviewScheduled,
	}
	require.NoError(t, svc.db.Create(&iv).Error)

	started, err := svc.StartSession(ctx, iv.ID)
	require.NoError(t, err)
	require.NoError(t, svc.db.First(&iv, iv.ID).Error)
	require.NotNil(t, iv.SessionID)
	assert.Equal(t, started.SessionID, *iv.SessionID)

	// attaching a second session to the same interview is rejected
	_, err = svc.StartSession(ctx, iv.ID)
	assert.ErrorIs(t, err, ErrInterviewNotFound)

	first, err := svc.Finalize(ctx, started.SessionID)
	require.NoError(t, err)

	require.NoError(t, svc.db.First(&iv, iv.ID).Error)
	assert.Equal(t, models.InterviewCompleted, iv.Status)
	require.NotNil(t, iv.CompletedAt)
	require.NotNil(t, iv.TechnicalScore)
	assert.Equal(t, first.TechnicalScore, *iv.TechnicalScore)
	require.NotNil(t, iv.IntegrityScore)
	assert.Equal(t, first.IntegrityScore, *iv.IntegrityScore)
	assert.Equal(t, first.Recommendation, iv.Recommendation)

	// recomputing the result does not overwrite the recorded outcome
	_, err = svc.Finalize(ctx, started.SessionID)
	require.NoError(t, err)
	var again models.Interview
	require.NoError(t, svc.db.First(&again, iv.ID).Error)
	assert.Equal(t, *iv.TechnicalScore, *again.TechnicalScore)
	assert.True(t, iv.CompletedAt.Equal(*again.CompletedAt))
}
