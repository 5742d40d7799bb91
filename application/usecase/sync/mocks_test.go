package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/healthwatch/healthwatch/application/port/outbound"
	"github.com/healthwatch/healthwatch/domain"
)

func testCreds(accountID string) *domain.DelegatedCredentials {
	return &domain.DelegatedCredentials{
		AccessKeyID:     "AKIA" + accountID,
		SecretAccessKey: "secret-" + accountID,
		SessionToken:    accountID,
		Expiration:      time.Now().Add(time.Hour),
	}
}

type fakeCredentialService struct {
	assumeRoleFn func(ctx context.Context, accountID, roleName string) (*domain.DelegatedCredentials, error)
	calls        int
}

func (f *fakeCredentialService) AssumeRole(ctx context.Context, accountID, roleName string) (*domain.DelegatedCredentials, error) {
	f.calls++
	if f.assumeRoleFn != nil {
		return f.assumeRoleFn(ctx, accountID, roleName)
	}
	return testCreds(accountID), nil
}

// fakeHealthAPI serves canned pages keyed by the account carried in the
// credentials' session token.
type fakeHealthAPI struct {
	mu gosync.Mutex

	eventPages map[string][]outbound.EventPage
	eventErr   map[string]error
	windows    map[string][]domain.Window
	eventCalls int

	detailsFn   func(eventArns []string) (*outbound.DetailResult, error)
	detailCalls [][]string

	accountPages map[string][]outbound.AccountPage
	accountErr   map[string]error

	entityPages map[string][]outbound.EntityPage
	entityErr   map[string]error
	entityCalls int
}

func newFakeHealthAPI() *fakeHealthAPI {
	return &fakeHealthAPI{
		eventPages:   make(map[string][]outbound.EventPage),
		eventErr:     make(map[string]error),
		windows:      make(map[string][]domain.Window),
		accountPages: make(map[string][]outbound.AccountPage),
		accountErr:   make(map[string]error),
		entityPages:  make(map[string][]outbound.EntityPage),
		entityErr:    make(map[string]error),
	}
}

func pairKey(eventArn, accountID string) string {
	return eventArn + "|" + accountID
}

func (f *fakeHealthAPI) DescribeEvents(ctx context.Context, creds *domain.DelegatedCredentials, window domain.Window, filter outbound.EventFilter, nextToken string) (*outbound.EventPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	accountID := creds.SessionToken
	f.eventCalls++
	f.windows[accountID] = append(f.windows[accountID], window)
	if err := f.eventErr[accountID]; err != nil {
		return nil, err
	}
	pages := f.eventPages[accountID]
	idx := 0
	if nextToken != "" {
		fmt.Sscanf(nextToken, "page-%d", &idx)
	}
	if idx >= len(pages) {
		return &outbound.EventPage{}, nil
	}
	page := pages[idx]
	if idx < len(pages)-1 {
		page.NextToken = fmt.Sprintf("page-%d", idx+1)
	} else {
		page.NextToken = ""
	}
	return &page, nil
}

func (f *fakeHealthAPI) DescribeEventDetails(ctx context.Context, creds *domain.DelegatedCredentials, eventArns []string) (*outbound.DetailResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	batch := append([]string(nil), eventArns...)
	f.detailCalls = append(f.detailCalls, batch)
	if f.detailsFn != nil {
		return f.detailsFn(batch)
	}
	result := &outbound.DetailResult{}
	for _, arn := range batch {
		result.Details = append(result.Details, domain.EventDetail{
			EventArn:    arn,
			StatusCode:  domain.StatusOpen,
			Description: "detail for " + arn,
		})
	}
	return result, nil
}

func (f *fakeHealthAPI) DescribeAffectedAccounts(ctx context.Context, creds *domain.DelegatedCredentials, eventArn, nextToken string) (*outbound.AccountPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.accountErr[eventArn]; err != nil {
		return nil, err
	}
	pages := f.accountPages[eventArn]
	idx := 0
	if nextToken != "" {
		fmt.Sscanf(nextToken, "page-%d", &idx)
	}
	if idx >= len(pages) {
		return &outbound.AccountPage{}, nil
	}
	page := pages[idx]
	if idx < len(pages)-1 {
		page.NextToken = fmt.Sprintf("page-%d", idx+1)
	} else {
		page.NextToken = ""
	}
	return &page, nil
}

func (f *fakeHealthAPI) DescribeAffectedEntities(ctx context.Context, creds *domain.DelegatedCredentials, eventArn, accountID, nextToken string) (*outbound.EntityPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entityCalls++
	key := pairKey(eventArn, accountID)
	if err := f.entityErr[key]; err != nil {
		return nil, err
	}
	pages := f.entityPages[key]
	idx := 0
	if nextToken != "" {
		fmt.Sscanf(nextToken, "page-%d", &idx)
	}
	if idx >= len(pages) {
		return &outbound.EntityPage{}, nil
	}
	page := pages[idx]
	if idx < len(pages)-1 {
		page.NextToken = fmt.Sprintf("page-%d", idx+1)
	} else {
		page.NextToken = ""
	}
	return &page, nil
}

// memoryStore keeps records in identity-keyed maps, so replays converge
// exactly like the ON CONFLICT upserts do.
type memoryStore struct {
	mu gosync.Mutex

	events   map[string]domain.EventSummary
	details  map[string]domain.EventDetail
	links    map[string]domain.AffectedAccountLink
	entities map[string]domain.AffectedEntity

	retentionCalls int
	upsertCalls    int

	failEvents   error
	failEntities error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		events:   make(map[string]domain.EventSummary),
		details:  make(map[string]domain.EventDetail),
		links:    make(map[string]domain.AffectedAccountLink),
		entities: make(map[string]domain.AffectedEntity),
	}
}

func (s *memoryStore) UpsertEvents(ctx context.Context, events []domain.EventSummary) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertCalls++
	if s.failEvents != nil {
		return 0, s.failEvents
	}
	for _, e := range events {
		s.events[e.AccountID+"|"+e.EventArn] = e
	}
	return len(events), nil
}

func (s *memoryStore) UpsertDetails(ctx context.Context, details []domain.EventDetail) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertCalls++
	for _, d := range details {
		s.details[d.EventArn] = d
	}
	return len(details), nil
}

func (s *memoryStore) UpsertAffectedAccounts(ctx context.Context, links []domain.AffectedAccountLink) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertCalls++
	for _, l := range links {
		s.links[pairKey(l.EventArn, l.AccountID)] = l
	}
	return len(links), nil
}

func (s *memoryStore) UpsertAffectedEntities(ctx context.Context, entities []domain.AffectedEntity) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertCalls++
	if s.failEntities != nil {
		return 0, s.failEntities
	}
	for _, e := range entities {
		s.entities[pairKey(e.EventArn, e.AccountID)+"|"+e.EntityID] = e
	}
	return len(entities), nil
}

func (s *memoryStore) EnsureRetentionPolicy(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retentionCalls++
	return nil
}

func (s *memoryStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for key, e := range s.events {
		if e.ExpirationTime.Before(now) {
			delete(s.events, key)
			deleted++
		}
	}
	return deleted, nil
}

// memoryDirectory is an in-memory account registry with the same
// monotonic watermark guard as the SQL adapter.
type memoryDirectory struct {
	mu       gosync.Mutex
	accounts []domain.RegisteredAccount
	failList error
}

func newMemoryDirectory(accounts ...domain.RegisteredAccount) *memoryDirectory {
	return &memoryDirectory{accounts: accounts}
}

func (d *memoryDirectory) Register(ctx context.Context, account *domain.RegisteredAccount) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, a := range d.accounts {
		if a.AccountID == account.AccountID {
			return outbound.ErrAccountAlreadyExists
		}
	}
	d.accounts = append(d.accounts, *account)
	return nil
}

func (d *memoryDirectory) UpdateRoleName(ctx context.Context, accountID, roleName string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.accounts {
		if d.accounts[i].AccountID == accountID {
			d.accounts[i].RoleName = roleName
			return nil
		}
	}
	return outbound.ErrAccountNotFound
}

func (d *memoryDirectory) Deregister(ctx context.Context, accountID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.accounts {
		if d.accounts[i].AccountID == accountID {
			d.accounts = append(d.accounts[:i], d.accounts[i+1:]...)
			return nil
		}
	}
	return outbound.ErrAccountNotFound
}

func (d *memoryDirectory) FindByID(ctx context.Context, accountID string) (*domain.RegisteredAccount, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, a := range d.accounts {
		if a.AccountID == accountID {
			account := a
			return &account, nil
		}
	}
	return nil, outbound.ErrAccountNotFound
}

func (d *memoryDirectory) ListAll(ctx context.Context) ([]domain.RegisteredAccount, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failList != nil {
		return nil, d.failList
	}
	return append([]domain.RegisteredAccount(nil), d.accounts...), nil
}

func (d *memoryDirectory) AdvanceWatermark(ctx context.Context, accountID string, syncedTo time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.accounts {
		if d.accounts[i].AccountID != accountID {
			continue
		}
		if d.accounts[i].LastSyncedTime == nil || d.accounts[i].LastSyncedTime.Before(syncedTo) {
			t := syncedTo
			d.accounts[i].LastSyncedTime = &t
		}
		return nil
	}
	return outbound.ErrAccountNotFound
}

func (d *memoryDirectory) watermark(accountID string) *time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, a := range d.accounts {
		if a.AccountID == accountID {
			return a.LastSyncedTime
		}
	}
	return nil
}

func testSummary(eventArn string, start time.Time) domain.EventSummary {
	return domain.EventSummary{
		EventArn:          eventArn,
		Service:           "EC2",
		EventTypeCode:     "AWS_EC2_OPERATIONAL_ISSUE",
		EventTypeCategory: "issue",
		EventScopeCode:    "ACCOUNT_SPECIFIC",
		Region:            "us-east-1",
		StartTime:         start,
		LastUpdatedTime:   start,
		StatusCode:        domain.StatusOpen,
	}
}
