package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sumire/triage/internal/domain"
)

// fakeStore is an in-memory stand-in for the repositories. One struct backs
// InboxStore, IssueStore, StateStore and ActivityLogStore so tests can seed
// and inspect related rows together. The mutex mirrors the database's
// uniqueness guarantee on the triage state row.
type fakeStore struct {
	mu          sync.Mutex
	inboxes     map[uuid.UUID]domain.Inbox
	inboxIssues map[uuid.UUID]domain.InboxIssue
	issues      map[uuid.UUID]domain.Issue
	states      map[uuid.UUID]domain.State
	activities  []domain.IssueActivity
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		inboxes:     make(map[uuid.UUID]domain.Inbox),
		inboxIssues: make(map[uuid.UUID]domain.InboxIssue),
		issues:      make(map[uuid.UUID]domain.Issue),
		states:      make(map[uuid.UUID]domain.State),
	}
}

func (f *fakeStore) addInbox(inbox domain.Inbox) domain.Inbox {
	f.mu.Lock()
	defer f.mu.Unlock()
	if inbox.ID == uuid.Nil {
		inbox.ID = uuid.New()
	}
	f.inboxes[inbox.ID] = inbox
	return inbox
}

func (f *fakeStore) addState(state domain.State) domain.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	if state.ID == uuid.Nil {
		state.ID = uuid.New()
	}
	f.states[state.ID] = state
	return state
}

func (f *fakeStore) addIssue(issue domain.Issue) domain.Issue {
	f.mu.Lock()
	defer f.mu.Unlock()
	if issue.ID == uuid.Nil {
		issue.ID = uuid.New()
	}
	f.issues[issue.ID] = issue
	return issue
}

func (f *fakeStore) addInboxIssue(ii domain.InboxIssue) domain.InboxIssue {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ii.ID == uuid.Nil {
		ii.ID = uuid.New()
	}
	f.inboxIssues[ii.ID] = ii
	return ii
}

// InboxStore

func (f *fakeStore) ListInboxes(ctx context.Context, slug string, projectID uuid.UUID) ([]domain.Inbox, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Inbox
	for _, inbox := range f.inboxes {
		if inbox.ProjectID != projectID {
			continue
		}
		inbox.PendingIssueCount = f.pendingCountLocked(inbox.ID)
		out = append(out, inbox)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) pendingCountLocked(inboxID uuid.UUID) int {
	n := 0
	for _, ii := range f.inboxIssues {
		if ii.InboxID == inboxID && ii.Status == domain.InboxIssuePending {
			n++
		}
	}
	return n
}

func (f *fakeStore) FindInbox(ctx context.Context, slug string, projectID, id uuid.UUID) (*domain.Inbox, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inbox, ok := f.inboxes[id]
	if !ok || inbox.ProjectID != projectID {
		return nil, domain.ErrNotFound
	}
	inbox.PendingIssueCount = f.pendingCountLocked(inbox.ID)
	return &inbox, nil
}

func (f *fakeStore) CreateInbox(ctx context.Context, inbox domain.Inbox) (*domain.Inbox, error) {
	stored := f.addInbox(inbox)
	return &stored, nil
}

func (f *fakeStore) UpdateInbox(ctx context.Context, inbox domain.Inbox) (*domain.Inbox, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.inboxes[inbox.ID]; !ok {
		return nil, domain.ErrNotFound
	}
	f.inboxes[inbox.ID] = inbox
	return &inbox, nil
}

func (f *fakeStore) DeleteInbox(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.inboxes, id)
	for iid, ii := range f.inboxIssues {
		if ii.InboxID == id {
			delete(f.inboxIssues, iid)
		}
	}
	return nil
}

func (f *fakeStore) CreateInboxIssue(ctx context.Context, ii domain.InboxIssue) (*domain.InboxIssue, error) {
	ii.Status = domain.InboxIssuePending
	if ii.Source == "" {
		ii.Source = "in-app"
	}
	stored := f.addInboxIssue(ii)
	return &stored, nil
}

func (f *fakeStore) FindInboxIssue(ctx context.Context, slug string, projectID, inboxID, id uuid.UUID) (*domain.InboxIssue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ii, ok := f.inboxIssues[id]
	if !ok || ii.ProjectID != projectID || ii.InboxID != inboxID {
		return nil, domain.ErrNotFound
	}
	return &ii, nil
}

func (f *fakeStore) UpdateInboxIssue(ctx context.Context, ii domain.InboxIssue) (*domain.InboxIssue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.inboxIssues[ii.ID]; !ok {
		return nil, domain.ErrNotFound
	}
	f.inboxIssues[ii.ID] = ii
	return &ii, nil
}

func (f *fakeStore) DeleteInboxIssue(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.inboxIssues, id)
	return nil
}

func (f *fakeStore) ListIssueDetails(ctx context.Context, slug string, projectID, inboxID uuid.UUID, status *domain.InboxIssueStatus, now time.Time) ([]domain.IssueDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.IssueDetail
	for _, ii := range f.inboxIssues {
		if ii.InboxID != inboxID || ii.ProjectID != projectID {
			continue
		}
		if ii.SnoozedTill != nil && ii.SnoozedTill.Before(now) {
			continue
		}
		if status != nil && ii.Status != *status {
			continue
		}
		out = append(out, f.detailLocked(ii))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].IssueInbox[0], out[j].IssueInbox[0]
		switch {
		case a.SnoozedTill == nil && b.SnoozedTill != nil:
			return true
		case a.SnoozedTill != nil && b.SnoozedTill == nil:
			return false
		case a.SnoozedTill != nil && !a.SnoozedTill.Equal(*b.SnoozedTill):
			return a.SnoozedTill.Before(*b.SnoozedTill)
		}
		return a.Status < b.Status
	})
	return out, nil
}

func (f *fakeStore) GetIssueDetail(ctx context.Context, slug string, projectID, inboxID, issueID uuid.UUID) (*domain.IssueDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ii := range f.inboxIssues {
		if ii.InboxID == inboxID && ii.IssueID == issueID {
			detail := f.detailLocked(ii)
			return &detail, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) detailLocked(ii domain.InboxIssue) domain.IssueDetail {
	issue := f.issues[ii.IssueID]
	detail := domain.IssueDetail{
		Issue:      issue,
		BridgeID:   ii.ID,
		IssueInbox: []domain.InboxIssueLite{ii.Lite()},
	}
	if issue.StateID != nil {
		if state, ok := f.states[*issue.StateID]; ok {
			detail.StateDetail = &state
		}
	}
	return detail
}

// IssueStore

func (f *fakeStore) Create(ctx context.Context, issue domain.Issue) (*domain.Issue, error) {
	stored := f.addIssue(issue)
	return &stored, nil
}

func (f *fakeStore) FindByID(ctx context.Context, slug string, projectID, id uuid.UUID) (*domain.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	issue, ok := f.issues[id]
	if !ok || issue.ProjectID != projectID {
		return nil, domain.ErrNotFound
	}
	return &issue, nil
}

func (f *fakeStore) Update(ctx context.Context, issue domain.Issue) (*domain.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.issues[issue.ID]; !ok {
		return nil, domain.ErrNotFound
	}
	f.issues[issue.ID] = issue
	return &issue, nil
}

func (f *fakeStore) SetState(ctx context.Context, issueID, stateID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	issue, ok := f.issues[issueID]
	if !ok {
		return domain.ErrNotFound
	}
	issue.StateID = &stateID
	f.issues[issueID] = issue
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, projectID, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.issues, id)
	return nil
}

// StateStore

func (f *fakeStore) ListByProject(ctx context.Context, slug string, projectID uuid.UUID) ([]domain.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.State
	for _, state := range f.states {
		if state.ProjectID == projectID {
			out = append(out, state)
		}
	}
	return out, nil
}

func (f *fakeStore) GetOrCreateTriage(ctx context.Context, projectID uuid.UUID) (*domain.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, state := range f.states {
		if state.ProjectID == projectID && state.Name == domain.TriageStateName &&
			state.Group == domain.StateGroupBacklog {
			return &state, nil
		}
	}
	state := domain.State{
		ID:          uuid.New(),
		ProjectID:   projectID,
		Name:        domain.TriageStateName,
		Group:       domain.StateGroupBacklog,
		Color:       domain.TriageStateColor,
		Description: domain.TriageStateDescription,
	}
	f.states[state.ID] = state
	return &state, nil
}

func (f *fakeStore) FirstByGroup(ctx context.Context, projectID uuid.UUID, group domain.StateGroup) (*domain.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, state := range f.states {
		if state.ProjectID == projectID && state.Group == group {
			return &state, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) FindDefault(ctx context.Context, projectID uuid.UUID) (*domain.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, state := range f.states {
		if state.ProjectID == projectID && state.Default {
			return &state, nil
		}
	}
	return nil, domain.ErrNotFound
}

// fakeStateStore narrows fakeStore to the StateStore interface. The wrapper
// exists because the state lookup and the issue lookup share the FindByID
// name with different signatures.
type fakeStateStore struct {
	*fakeStore
}

func (f fakeStateStore) FindByID(ctx context.Context, projectID, id uuid.UUID) (*domain.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.states[id]
	if !ok || state.ProjectID != projectID {
		return nil, domain.ErrNotFound
	}
	return &state, nil
}

// ActivityLogStore

func (f *fakeStore) ListByIssue(ctx context.Context, slug string, projectID, issueID uuid.UUID) ([]domain.IssueActivity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.IssueActivity
	for _, a := range f.activities {
		if a.IssueID == issueID {
			out = append(out, a)
		}
	}
	return out, nil
}

// fakeNotifier captures events synchronously.
type fakeNotifier struct {
	mu     sync.Mutex
	events []domain.ActivityEvent
}

func (n *fakeNotifier) Notify(event domain.ActivityEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *fakeNotifier) byType(t domain.ActivityType) []domain.ActivityEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []domain.ActivityEvent
	for _, e := range n.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// fakeMemberStore resolves membership from a static map keyed by user id.
type fakeMemberStore struct {
	members map[uuid.UUID]domain.Role
}

func (f *fakeMemberStore) FindProjectMember(ctx context.Context, slug string, projectID, userID uuid.UUID) (*domain.ProjectMember, error) {
	role, ok := f.members[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.ProjectMember{
		ID:        uuid.New(),
		ProjectID: projectID,
		MemberID:  userID,
		Role:      role,
	}, nil
}

// fakeBoardStore serves one deploy board, or not-found when nil.
type fakeBoardStore struct {
	board *domain.DeployBoard
}

func (f *fakeBoardStore) Lookup(ctx context.Context, slug string, projectID uuid.UUID) (*domain.DeployBoard, error) {
	if f.board == nil {
		return nil, domain.ErrNotFound
	}
	return f.board, nil
}
