package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"campus-calendar/internal/model"
	"campus-calendar/internal/repository"
	pkgerrors "campus-calendar/pkg/errors"
)

// 所有 mock 按值保存记录，读取时返回副本，写入需显式调用 Update

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = uuid.NewString()
	}
	m.users[user.UserID] = *user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	if _, ok := m.users[user.UserID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.users[user.UserID] = *user
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) List(_ context.Context, filters *repository.UserListFilters, offset, limit int) ([]model.User, int64, error) {
	var matched []model.User
	for _, u := range m.users {
		if filters.OrganizationID != "" && u.OrganizationID != filters.OrganizationID {
			continue
		}
		if filters.Role != "" && u.Role != filters.Role {
			continue
		}
		if kw := strings.ToLower(filters.Keyword); kw != "" &&
			!strings.Contains(strings.ToLower(u.Name), kw) && !strings.Contains(strings.ToLower(u.Email), kw) {
			continue
		}
		matched = append(matched, u)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Email < matched[j].Email })

	total := int64(len(matched))
	if offset >= len(matched) {
		return []model.User{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

// ── Mock CalendarRepository ──

type mockCalendarRepo struct {
	calendars map[string]model.Calendar
}

func newMockCalendarRepo() *mockCalendarRepo {
	return &mockCalendarRepo{calendars: make(map[string]model.Calendar)}
}

func (m *mockCalendarRepo) add(c model.Calendar) {
	m.calendars[c.CalendarID] = c
}

func (m *mockCalendarRepo) GetByID(_ context.Context, id string) (*model.Calendar, error) {
	if c, ok := m.calendars[id]; ok {
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCalendarRepo) ListByIDs(_ context.Context, ids []string) ([]model.Calendar, error) {
	var result []model.Calendar
	for _, id := range ids {
		if c, ok := m.calendars[id]; ok {
			result = append(result, c)
		}
	}
	return result, nil
}

// ── Mock CategoryRepository ──

type mockCategoryRepo struct {
	categories map[string]model.Category
}

func newMockCategoryRepo() *mockCategoryRepo {
	return &mockCategoryRepo{categories: make(map[string]model.Category)}
}

func (m *mockCategoryRepo) Create(_ context.Context, category *model.Category) error {
	if category.CategoryID == "" {
		category.CategoryID = uuid.NewString()
	}
	m.categories[category.CategoryID] = *category
	return nil
}

func (m *mockCategoryRepo) GetByID(_ context.Context, id string) (*model.Category, error) {
	if c, ok := m.categories[id]; ok {
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCategoryRepo) ListByCalendar(_ context.Context, calendarID string) ([]model.Category, error) {
	var result []model.Category
	for _, c := range m.categories {
		if c.CalendarID == calendarID {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SortOrder < result[j].SortOrder })
	return result, nil
}

func (m *mockCategoryRepo) Update(_ context.Context, category *model.Category) error {
	if _, ok := m.categories[category.CategoryID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.categories[category.CategoryID] = *category
	return nil
}

func (m *mockCategoryRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.categories, id)
	return nil
}

// ── Mock LocationRepository ──

type mockLocationRepo struct {
	locations map[string]model.Location
}

func newMockLocationRepo() *mockLocationRepo {
	return &mockLocationRepo{locations: make(map[string]model.Location)}
}

func (m *mockLocationRepo) Create(_ context.Context, loc *model.Location) error {
	if loc.LocationID == "" {
		loc.LocationID = uuid.NewString()
	}
	m.locations[loc.LocationID] = *loc
	return nil
}

func (m *mockLocationRepo) GetByID(_ context.Context, id string) (*model.Location, error) {
	if l, ok := m.locations[id]; ok {
		return &l, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLocationRepo) List(_ context.Context, f *repository.LocationListFilters) ([]model.Location, error) {
	kw := strings.ToLower(f.Keyword)
	var out []model.Location
	for _, l := range m.locations {
		switch {
		case l.OrganizationID != f.OrganizationID,
			!f.IncludeInactive && !l.IsActive,
			f.ResourceType != "" && l.ResourceType != f.ResourceType,
			f.MinCapacity > 0 && l.Capacity != 0 && l.Capacity < f.MinCapacity,
			kw != "" && !strings.Contains(strings.ToLower(l.Name+" "+l.Building), kw):
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockLocationRepo) Update(_ context.Context, loc *model.Location) error {
	if _, ok := m.locations[loc.LocationID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.locations[loc.LocationID] = *loc
	return nil
}

func (m *mockLocationRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.locations, id)
	return nil
}

// ── Mock SubscriptionRepository ──

type mockSubscriptionRepo struct {
	subs      map[string]model.CalendarSubscription
	calendars *mockCalendarRepo
}

func newMockSubscriptionRepo(calendars *mockCalendarRepo) *mockSubscriptionRepo {
	return &mockSubscriptionRepo{subs: make(map[string]model.CalendarSubscription), calendars: calendars}
}

func (m *mockSubscriptionRepo) Upsert(_ context.Context, sub *model.CalendarSubscription) error {
	m.subs[sub.UserID+"|"+sub.CalendarID] = *sub
	return nil
}

func (m *mockSubscriptionRepo) ListByUser(_ context.Context, userID string) ([]model.CalendarSubscription, error) {
	var result []model.CalendarSubscription
	for _, s := range m.subs {
		if s.UserID != userID {
			continue
		}
		if c, ok := m.calendars.calendars[s.CalendarID]; ok {
			s.Calendar = &c
		}
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CalendarID < result[j].CalendarID })
	return result, nil
}

// ── Mock EventRepository ──

type mockEventRepo struct {
	events map[string]model.CalendarEvent
	// exceptions 用于模拟 ListInRange 中"例外被移入窗口"的子查询
	exceptions *mockExceptionRepo
	// failUpdate 非空时 Update 返回该错误（模拟事务中途失败）
	failUpdate error
	// forUpdateCalls 记录 GetByIDForUpdate 调用次数
	forUpdateCalls int
}

func newMockEventRepo(exceptions *mockExceptionRepo) *mockEventRepo {
	return &mockEventRepo{events: make(map[string]model.CalendarEvent), exceptions: exceptions}
}

func (m *mockEventRepo) Create(_ context.Context, event *model.CalendarEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.Version == 0 {
		event.Version = 1
	}
	m.events[event.EventID] = *event
	return nil
}

func (m *mockEventRepo) GetByID(_ context.Context, id string) (*model.CalendarEvent, error) {
	if e, ok := m.events[id]; ok {
		return &e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEventRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.CalendarEvent, error) {
	m.forUpdateCalls++
	return m.GetByID(ctx, id)
}

func (m *mockEventRepo) ListInRange(_ context.Context, calendarIDs []string, start, end time.Time, statuses []string) ([]model.CalendarEvent, error) {
	var result []model.CalendarEvent
	for _, e := range m.events {
		if !contains(calendarIDs, e.CalendarID) {
			continue
		}
		if len(statuses) > 0 && !contains(statuses, e.Status) {
			continue
		}
		if e.IsRecurring() {
			if e.StartTime.After(end) && !m.hasExceptionIn(e.EventID, start, end) {
				continue
			}
		} else if e.StartTime.After(end) || e.EndTime.Before(start) {
			continue
		}
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartTime.Before(result[j].StartTime) })
	return result, nil
}

func (m *mockEventRepo) hasExceptionIn(parentEventID string, start, end time.Time) bool {
	if m.exceptions == nil {
		return false
	}
	for _, ex := range m.exceptions.byParent(parentEventID) {
		if !ex.Cancelled && !ex.StartTime.After(end) && !ex.EndTime.Before(start) {
			return true
		}
	}
	return false
}

func (m *mockEventRepo) Update(_ context.Context, event *model.CalendarEvent) error {
	if m.failUpdate != nil {
		return m.failUpdate
	}
	stored, ok := m.events[event.EventID]
	if !ok || stored.Version != event.Version {
		return pkgerrors.ErrOptimisticLock
	}
	event.Version++
	m.events[event.EventID] = *event
	return nil
}

func (m *mockEventRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.events, id)
	return nil
}

// ── Mock ExceptionRepository ──

type mockExceptionRepo struct {
	exceptions map[string]model.EventException
}

func newMockExceptionRepo() *mockExceptionRepo {
	return &mockExceptionRepo{exceptions: make(map[string]model.EventException)}
}

func (m *mockExceptionRepo) Create(_ context.Context, ex *model.EventException) error {
	for _, e := range m.exceptions {
		if e.ParentEventID == ex.ParentEventID && e.OriginalStart.Equal(ex.OriginalStart) {
			return fmt.Errorf("duplicate key value violates unique constraint \"uk_exception_slot\"")
		}
	}
	if ex.ExceptionID == "" {
		ex.ExceptionID = uuid.NewString()
	}
	m.exceptions[ex.ExceptionID] = *ex
	return nil
}

func (m *mockExceptionRepo) GetBySlot(_ context.Context, parentEventID string, originalStart time.Time) (*model.EventException, error) {
	for _, e := range m.exceptions {
		if e.ParentEventID == parentEventID && e.OriginalStart.Equal(originalStart) {
			return &e, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockExceptionRepo) ListByParents(_ context.Context, parentEventIDs []string) ([]model.EventException, error) {
	var result []model.EventException
	for _, e := range m.exceptions {
		if contains(parentEventIDs, e.ParentEventID) {
			result = append(result, e)
		}
	}
	sortExceptions(result)
	return result, nil
}

func (m *mockExceptionRepo) ListFrom(_ context.Context, parentEventID string, from time.Time) ([]model.EventException, error) {
	var result []model.EventException
	for _, e := range m.exceptions {
		if e.ParentEventID == parentEventID && !e.OriginalStart.Before(from) {
			result = append(result, e)
		}
	}
	sortExceptions(result)
	return result, nil
}

func (m *mockExceptionRepo) Update(_ context.Context, ex *model.EventException) error {
	if _, ok := m.exceptions[ex.ExceptionID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.exceptions[ex.ExceptionID] = *ex
	return nil
}

func (m *mockExceptionRepo) Delete(_ context.Context, id string) error {
	delete(m.exceptions, id)
	return nil
}

func (m *mockExceptionRepo) DeleteByParent(_ context.Context, parentEventID string) error {
	for id, e := range m.exceptions {
		if e.ParentEventID == parentEventID {
			delete(m.exceptions, id)
		}
	}
	return nil
}

func (m *mockExceptionRepo) DeleteFrom(_ context.Context, parentEventID string, from time.Time) error {
	for id, e := range m.exceptions {
		if e.ParentEventID == parentEventID && !e.OriginalStart.Before(from) {
			delete(m.exceptions, id)
		}
	}
	return nil
}

func (m *mockExceptionRepo) byParent(parentEventID string) []model.EventException {
	list, _ := m.ListByParents(context.Background(), []string{parentEventID})
	return list
}

func sortExceptions(list []model.EventException) {
	sort.Slice(list, func(i, j int) bool { return list[i].OriginalStart.Before(list[j].OriginalStart) })
}

// ── Mock ApprovalRepository ──

type mockApprovalRepo struct {
	approvals map[string]model.EventApproval
}

func newMockApprovalRepo() *mockApprovalRepo {
	return &mockApprovalRepo{approvals: make(map[string]model.EventApproval)}
}

func (m *mockApprovalRepo) BatchCreate(_ context.Context, approvals []model.EventApproval) error {
	for i := range approvals {
		a := &approvals[i]
		for _, existing := range m.approvals {
			if existing.EventID == a.EventID && existing.Channel == a.Channel {
				return fmt.Errorf("duplicate key value violates unique constraint \"uk_event_channel\"")
			}
		}
		if a.ApprovalID == "" {
			a.ApprovalID = uuid.NewString()
		}
		m.approvals[a.ApprovalID] = *a
	}
	return nil
}

func (m *mockApprovalRepo) ListByEvent(_ context.Context, eventID string) ([]model.EventApproval, error) {
	var result []model.EventApproval
	for _, a := range m.approvals {
		if a.EventID == eventID {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Channel < result[j].Channel })
	return result, nil
}

func (m *mockApprovalRepo) GetByEventChannel(_ context.Context, eventID string, channel model.ApprovalChannel) (*model.EventApproval, error) {
	for _, a := range m.approvals {
		if a.EventID == eventID && a.Channel == channel {
			return &a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockApprovalRepo) Respond(_ context.Context, approval *model.EventApproval, fromStatus string) error {
	stored, ok := m.approvals[approval.ApprovalID]
	if !ok || stored.Status != fromStatus {
		return pkgerrors.ErrOptimisticLock
	}
	m.approvals[approval.ApprovalID] = *approval
	return nil
}

func (m *mockApprovalRepo) DeleteByEvent(_ context.Context, eventID string) error {
	for id, a := range m.approvals {
		if a.EventID == eventID {
			delete(m.approvals, id)
		}
	}
	return nil
}

// ── Mock ChannelConfigRepository ──

type mockChannelConfigRepo struct {
	configs []model.ApprovalChannelConfig
}

func (m *mockChannelConfigRepo) ListActiveByOrganization(_ context.Context, organizationID string) ([]model.ApprovalChannelConfig, error) {
	var result []model.ApprovalChannelConfig
	for _, c := range m.configs {
		if c.OrganizationID == organizationID && c.IsActive {
			result = append(result, c)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].SortOrder < result[j].SortOrder })
	return result, nil
}

func (m *mockChannelConfigRepo) ListByOrganization(_ context.Context, organizationID string) ([]model.ApprovalChannelConfig, error) {
	var result []model.ApprovalChannelConfig
	for _, c := range m.configs {
		if c.OrganizationID == organizationID {
			result = append(result, c)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].SortOrder < result[j].SortOrder })
	return result, nil
}

func (m *mockChannelConfigRepo) Upsert(_ context.Context, cfg *model.ApprovalChannelConfig) error {
	for i, c := range m.configs {
		if c.OrganizationID == cfg.OrganizationID && c.Channel == cfg.Channel {
			cfg.ConfigID = c.ConfigID
			m.configs[i] = *cfg
			return nil
		}
	}
	if cfg.ConfigID == "" {
		cfg.ConfigID = uuid.NewString()
	}
	m.configs = append(m.configs, *cfg)
	return nil
}

// ── Mock ResourceRequestRepository ──

type mockResourceRequestRepo struct {
	requests []model.ResourceRequest
}

func (m *mockResourceRequestRepo) BatchCreate(_ context.Context, requests []model.ResourceRequest) error {
	for i := range requests {
		if requests[i].RequestID == "" {
			requests[i].RequestID = uuid.NewString()
		}
		m.requests = append(m.requests, requests[i])
	}
	return nil
}

func (m *mockResourceRequestRepo) ListByEvent(_ context.Context, eventID string) ([]model.ResourceRequest, error) {
	var result []model.ResourceRequest
	for _, r := range m.requests {
		if r.EventID == eventID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *mockResourceRequestRepo) DeleteByEvent(_ context.Context, eventID string) error {
	kept := m.requests[:0]
	for _, r := range m.requests {
		if r.EventID != eventID {
			kept = append(kept, r)
		}
	}
	m.requests = kept
	return nil
}

// ── Mock TokenBlacklist ──

type mockBlacklist struct {
	revoked map[string]time.Duration
}

func newMockBlacklist() *mockBlacklist {
	return &mockBlacklist{revoked: make(map[string]time.Duration)}
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.revoked[jti] = ttl
	return nil
}

func (m *mockBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	_, ok := m.revoked[jti]
	return ok, nil
}

// ── 测试夹具 ──

const (
	testOrgID      = "00000000-0000-0000-0000-00000000000a"
	testCalendarID = "00000000-0000-0000-0000-0000000000c1"
	testCreatorID  = "00000000-0000-0000-0000-0000000000b1"
	testAdminID    = "00000000-0000-0000-0000-0000000000b2"
	testOtherID    = "00000000-0000-0000-0000-0000000000b3"
)

type mockStore struct {
	users         *mockUserRepo
	calendars     *mockCalendarRepo
	categories    *mockCategoryRepo
	locations     *mockLocationRepo
	subscriptions *mockSubscriptionRepo
	events        *mockEventRepo
	exceptions    *mockExceptionRepo
	approvals     *mockApprovalRepo
	configs       *mockChannelConfigRepo
	requests      *mockResourceRequestRepo
}

// newMockStore 构造带一个默认日历的内存存储（日历时区 America/New_York，需要审批）
func newMockStore() *mockStore {
	calendars := newMockCalendarRepo()
	calendars.add(model.Calendar{
		CalendarID:       testCalendarID,
		OrganizationID:   testOrgID,
		Name:             "校园活动",
		Timezone:         "America/New_York",
		RequiresApproval: true,
	})
	exceptions := newMockExceptionRepo()
	return &mockStore{
		users:         newMockUserRepo(),
		calendars:     calendars,
		categories:    newMockCategoryRepo(),
		locations:     newMockLocationRepo(),
		subscriptions: newMockSubscriptionRepo(calendars),
		events:        newMockEventRepo(exceptions),
		exceptions:    exceptions,
		approvals:     newMockApprovalRepo(),
		configs:       &mockChannelConfigRepo{},
		requests:      &mockResourceRequestRepo{},
	}
}

func (m *mockStore) repo() *repository.Repository {
	return &repository.Repository{
		User:            m.users,
		Calendar:        m.calendars,
		Category:        m.categories,
		Location:        m.locations,
		Subscription:    m.subscriptions,
		Event:           m.events,
		Exception:       m.exceptions,
		Approval:        m.approvals,
		ChannelConfig:   m.configs,
		ResourceRequest: m.requests,
	}
}

func (m *mockStore) event(id string) (model.CalendarEvent, bool) {
	e, ok := m.events.events[id]
	return e, ok
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func mustLoc(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}
