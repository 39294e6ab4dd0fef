package runner

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/domain"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/teaming"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/utils"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeStore struct {
	mu      sync.Mutex
	jobs    map[int64]domain.TeamingJob
	rosters map[int64]*domain.Roster
	users   map[int64]*domain.User
	results map[int64]*domain.TeamingResult
	updates int
}

func (s *fakeStore) GetTeamingJobByID(_ context.Context, id int64) (*domain.TeamingJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &job, nil
}

func (s *fakeStore) UpdateTeamingJob(_ context.Context, job *domain.TeamingJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.jobs[job.ID]
	if !ok || stored.Version != job.Version {
		return sql.ErrNoRows
	}
	job.Version++
	s.jobs[job.ID] = *job
	s.updates++
	return nil
}

func (s *fakeStore) GetRosterByID(_ context.Context, id int64) (*domain.Roster, error) {
	roster, ok := s.rosters[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return roster, nil
}

func (s *fakeStore) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (s *fakeStore) InsertTeamingResult(_ context.Context, result *domain.TeamingResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.JobID] = result
	return nil
}

func (s *fakeStore) job(id int64) domain.TeamingJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// fakeProgress 在收到 cancelAfter 次进度之后报告取消，cancelAfter 为 0 表示不取消
type fakeProgress struct {
	mu          sync.Mutex
	updates     []teaming.Progress
	cancelled   map[int64]bool
	cancelAfter int
	cleared     []int64
}

func (p *fakeProgress) SetProgress(_ context.Context, _ int64, progress teaming.Progress) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, progress)
	return nil
}

func (p *fakeProgress) Cancelled(_ context.Context, jobID int64) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancelled[jobID] {
		return true, nil
	}
	return p.cancelAfter > 0 && len(p.updates) >= p.cancelAfter, nil
}

func (p *fakeProgress) Clear(_ context.Context, jobID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleared = append(p.cleared, jobID)
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []domain.MailMessage
}

func (n *fakeNotifier) Notify(_ context.Context, msg domain.MailMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return nil
}

func testRoster() *domain.Roster {
	roster := &domain.Roster{
		ID:           7,
		Name:         "测试名单",
		BlocksPerDay: 48,
		Attributes: []domain.AttributeDefinition{
			{Name: "编程经验", Kind: teaming.KindOrdered, Options: []string{"没有", "一点", "熟练"}},
		},
	}
	for i := 0; i < 6; i++ {
		roster.Students = append(roster.Students, domain.StudentRecord{
			ID:            int64(i + 1),
			RosterID:      roster.ID,
			StudentNumber: fmt.Sprintf("s%d", i+1),
			Section:       "1班",
			Attributes:    [][]int{{i % 3}},
		})
	}
	return roster
}

func testParameters() teaming.Parameters {
	return teaming.Parameters{
		PopulationSize:      40,
		TournamentSize:      4,
		NumElites:           2,
		RandomInjection:     2,
		TopGenomeLikelihood: 0.5,
		MutationLikelihood:  0.3,
		MinGenerations:      2,
		MaxGenerations:      6,
		StabilityWindow:     2,
		StabilityThreshold:  0,
		Workers:             2,
		Seed:                1,
	}
}

func newFixture(job domain.TeamingJob) (*fakeStore, *fakeProgress, *fakeNotifier) {
	roster := testRoster()
	if job.Scoring.Attributes == nil {
		job.Scoring = utils.DefaultScoringOptions(roster)
	}
	store := &fakeStore{
		jobs:    map[int64]domain.TeamingJob{job.ID: job},
		rosters: map[int64]*domain.Roster{roster.ID: roster},
		users:   map[int64]*domain.User{3: {ID: 3, FullName: "王老师", Email: "instructor@example.com"}},
		results: map[int64]*domain.TeamingResult{},
	}
	return store, &fakeProgress{cancelled: map[int64]bool{}}, &fakeNotifier{}
}

func pendingJob() domain.TeamingJob {
	return domain.TeamingJob{
		ID:         42,
		RosterID:   7,
		Section:    "1班",
		TeamSizes:  []int{3, 3},
		Parameters: testParameters(),
		Status:     domain.TeamingJobPending,
		CreatedBy:  3,
	}
}

func TestRunCompletesJob(t *testing.T) {
	store, progress, notifier := newFixture(pendingJob())
	rn := New(store, progress, notifier, Options{CancelPollInterval: time.Millisecond, ProgressBuffer: 4})

	require.NoError(t, rn.Run(context.Background(), 42))

	job := store.job(42)
	require.Equal(t, domain.TeamingJobCompleted, job.Status)
	require.NotNil(t, job.StartedAt)
	require.NotNil(t, job.FinishedAt)
	require.Positive(t, job.Generations)
	require.NotEmpty(t, job.Reason)

	result := store.results[42]
	require.NotNil(t, result)
	require.Len(t, result.Teams, 2)
	require.Equal(t, int64(1), result.Seed)
	seen := map[int64]bool{}
	for _, team := range result.Teams {
		require.Len(t, team.StudentIDs, 3)
		for _, id := range team.StudentIDs {
			require.False(t, seen[id])
			seen[id] = true
		}
	}
	require.Len(t, seen, 6)

	require.NotEmpty(t, progress.updates)
	require.Equal(t, []int64{42}, progress.cleared)

	require.Len(t, notifier.messages, 1)
	msg := notifier.messages[0]
	require.Equal(t, domain.MailTypeTeamingComplete, msg.Type)
	require.Equal(t, "instructor@example.com", msg.To)
	data := msg.Data.(domain.TeamingCompleteMailData)
	require.Equal(t, "测试名单", data.RosterName)
	require.Equal(t, 2, data.NumTeams)
}

func TestRunCancelledBeforeStart(t *testing.T) {
	store, progress, notifier := newFixture(pendingJob())
	progress.cancelled[42] = true
	rn := New(store, progress, notifier, Options{})

	require.NoError(t, rn.Run(context.Background(), 42))

	require.Equal(t, domain.TeamingJobCancelled, store.job(42).Status)
	require.Empty(t, store.results)
	require.Len(t, notifier.messages, 1)
}

func TestRunCancelledWhileRunning(t *testing.T) {
	job := pendingJob()
	job.Parameters.MinGenerations = 1_000_000
	job.Parameters.MaxGenerations = 1_000_000
	store, progress, notifier := newFixture(job)
	progress.cancelAfter = 3
	rn := New(store, progress, notifier, Options{CancelPollInterval: time.Millisecond, ProgressBuffer: 1})

	require.NoError(t, rn.Run(context.Background(), 42))

	stored := store.job(42)
	require.Equal(t, domain.TeamingJobCancelled, stored.Status)
	require.Equal(t, teaming.Cancelled, stored.Reason)
	require.Less(t, stored.Generations, 1_000_000)

	// 取消时仍然保存当前最好的分组
	require.NotNil(t, store.results[42])
	require.Equal(t, teaming.Cancelled, store.results[42].Reason)
}

func TestRunFailsInvalidJob(t *testing.T) {
	job := pendingJob()
	job.TeamSizes = []int{3, 2}
	store, progress, notifier := newFixture(job)
	rn := New(store, progress, notifier, Options{})

	require.NoError(t, rn.Run(context.Background(), 42))

	stored := store.job(42)
	require.Equal(t, domain.TeamingJobFailed, stored.Status)
	require.NotEmpty(t, stored.Message)
	require.Empty(t, store.results)
	require.Len(t, notifier.messages, 1)
}

func TestRunFailsMissingSection(t *testing.T) {
	job := pendingJob()
	job.Section = "9班"
	store, progress, notifier := newFixture(job)
	rn := New(store, progress, notifier, Options{})

	require.NoError(t, rn.Run(context.Background(), 42))
	require.Equal(t, domain.TeamingJobFailed, store.job(42).Status)
}

func TestRunIgnoresMissingAndFinishedJobs(t *testing.T) {
	job := pendingJob()
	job.Status = domain.TeamingJobCompleted
	store, progress, notifier := newFixture(job)
	rn := New(store, progress, notifier, Options{})

	require.NoError(t, rn.Run(context.Background(), 42))
	require.NoError(t, rn.Run(context.Background(), 404))

	require.Zero(t, store.updates)
	require.Empty(t, notifier.messages)
}

func TestRunLeavesJobRunningOnShutdown(t *testing.T) {
	store, progress, notifier := newFixture(pendingJob())
	rn := New(store, progress, notifier, Options{CancelPollInterval: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := rn.Run(ctx, 42)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, domain.TeamingJobRunning, store.job(42).Status)
	require.Empty(t, store.results)
	require.Empty(t, notifier.messages)
}
