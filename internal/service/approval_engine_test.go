package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"campus-calendar/internal/model"
)

// ── 测试辅助 ──

func channelConfig(ch model.ApprovalChannel, mode string, autoApprove bool, order int) model.ApprovalChannelConfig {
	return model.ApprovalChannelConfig{
		OrganizationID:          testOrgID,
		Channel:                 ch,
		Mode:                    mode,
		AutoApproveIfNoResource: autoApprove,
		IsActive:                true,
		SortOrder:               order,
	}
}

// seedDraft 写入一条由 testCreatorID 创建的草稿日程
func seedDraft(t *testing.T, store *mockStore) *model.CalendarEvent {
	t.Helper()
	start := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	evt := &model.CalendarEvent{
		CalendarID: testCalendarID,
		Title:      "社团招新",
		StartTime:  start,
		EndTime:    start.Add(2 * time.Hour),
		Timezone:   "America/New_York",
		Status:     model.EventStatusDraft,
		CreatorID:  testCreatorID,
		Metadata:   newMetadata(model.EventMetadata{}),
	}
	if err := store.events.Create(context.Background(), evt); err != nil {
		t.Fatalf("写入日程失败: %v", err)
	}
	return evt
}

func statusOf(approvals []model.EventApproval) map[model.ApprovalChannel]string {
	out := make(map[model.ApprovalChannel]string, len(approvals))
	for _, a := range approvals {
		out[a.Channel] = a.Status
	}
	return out
}

// ── AggregateStatus ──

func TestAggregateStatus(t *testing.T) {
	rec := func(status string) model.EventApproval { return model.EventApproval{Status: status} }

	tests := []struct {
		name      string
		approvals []model.EventApproval
		want      string
	}{
		{"无记录", nil, model.EventStatusPendingApproval},
		{"全部通过", []model.EventApproval{rec("approved"), rec("auto_approved"), rec("skipped")}, model.EventStatusConfirmed},
		{"存在待审批", []model.EventApproval{rec("approved"), rec("pending")}, model.EventStatusPendingApproval},
		{"任一驳回", []model.EventApproval{rec("approved"), rec("pending"), rec("rejected")}, model.EventStatusRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AggregateStatus(tt.approvals); got != tt.want {
				t.Errorf("期望 %s，实际 %s", tt.want, got)
			}
		})
	}
}

// ── PlanApprovals ──

func TestPlanApprovals_ResourceDrivenChannels(t *testing.T) {
	inactive := channelConfig(model.ChannelAthletics, model.ChannelModeRequired, false, 6)
	inactive.IsActive = false

	configs := []model.ApprovalChannelConfig{
		channelConfig(model.ChannelAdmin, model.ChannelModeRequired, false, 1),
		channelConfig(model.ChannelFacilities, model.ChannelModeRequired, false, 2),
		channelConfig(model.ChannelAV, model.ChannelModeRequired, true, 3),
		channelConfig(model.ChannelCustodial, model.ChannelModeRequired, false, 4),
		channelConfig(model.ChannelSecurity, model.ChannelModeOptional, false, 5),
		inactive,
		// 重复配置只取第一条
		channelConfig(model.ChannelAdmin, model.ChannelModeRequired, true, 7),
	}
	requests := []model.ResourceRequest{{ResourceType: model.ResourceTypeRoom}}

	plan := PlanApprovals("evt-1", configs, requests)
	got := statusOf(plan)

	if len(plan) != 3 {
		t.Fatalf("期望3条审批记录，实际=%d (%v)", len(plan), got)
	}
	if got[model.ChannelAdmin] != model.ApprovalStatusPending {
		t.Errorf("admin 渠道应待审批，实际=%s", got[model.ChannelAdmin])
	}
	if got[model.ChannelFacilities] != model.ApprovalStatusPending {
		t.Errorf("申请了场地，facilities 渠道应待审批，实际=%s", got[model.ChannelFacilities])
	}
	if got[model.ChannelAV] != model.ApprovalStatusAutoApproved {
		t.Errorf("未申请设备且配置自动通过，av 渠道应为 auto_approved，实际=%s", got[model.ChannelAV])
	}
	for _, ch := range []model.ApprovalChannel{model.ChannelCustodial, model.ChannelSecurity, model.ChannelAthletics} {
		if _, ok := got[ch]; ok {
			t.Errorf("%s 渠道不应生成记录", ch)
		}
	}
	for _, a := range plan {
		if a.EventID != "evt-1" {
			t.Errorf("审批记录应关联 evt-1，实际=%s", a.EventID)
		}
	}
}

func TestPlanApprovals_FallbackToAdmin(t *testing.T) {
	plan := PlanApprovals("evt-1", nil, nil)
	if len(plan) != 1 || plan[0].Channel != model.ChannelAdmin || plan[0].Status != model.ApprovalStatusPending {
		t.Fatalf("无配置时应回退为一条待审批的 admin 记录，实际=%+v", plan)
	}
}

// ── InitialStatus ──

func TestApprovalEngine_InitialStatus(t *testing.T) {
	engine := NewApprovalEngine(newMockStore().repo(), zap.NewNop())
	strict := &model.Calendar{RequiresApproval: true}
	open := &model.Calendar{RequiresApproval: false}

	if got := engine.InitialStatus(true, strict); got != model.EventStatusConfirmed {
		t.Errorf("拥有发布权限应直接确认，实际=%s", got)
	}
	if got := engine.InitialStatus(false, strict); got != model.EventStatusDraft {
		t.Errorf("普通成员应为草稿，实际=%s", got)
	}
	if got := engine.InitialStatus(false, open); got != model.EventStatusConfirmed {
		t.Errorf("免审批日历应直接确认，实际=%s", got)
	}
}

// ── Submit ──

func TestApprovalEngine_Submit_NotCreator(t *testing.T) {
	store := newMockStore()
	engine := NewApprovalEngine(store.repo(), zap.NewNop())
	evt := seedDraft(t, store)

	_, err := engine.Submit(context.Background(), evt, false, testOtherID)
	if !errors.Is(err, ErrNotEventCreator) {
		t.Fatalf("期望 ErrNotEventCreator，实际=%v", err)
	}
	if len(store.approvals.approvals) != 0 {
		t.Error("权限不足时不应写入审批记录")
	}
	if stored, _ := store.event(evt.EventID); stored.Status != model.EventStatusDraft {
		t.Errorf("日程状态不应变化，实际=%s", stored.Status)
	}
}

func TestApprovalEngine_Submit_NotDraft(t *testing.T) {
	store := newMockStore()
	engine := NewApprovalEngine(store.repo(), zap.NewNop())
	evt := seedDraft(t, store)
	evt.Status = model.EventStatusConfirmed

	if _, err := engine.Submit(context.Background(), evt, true, testCreatorID); !errors.Is(err, ErrEventNotDraft) {
		t.Fatalf("期望 ErrEventNotDraft，实际=%v", err)
	}
}

func TestApprovalEngine_Submit_AllAutoApproved(t *testing.T) {
	store := newMockStore()
	store.configs.configs = []model.ApprovalChannelConfig{
		channelConfig(model.ChannelFacilities, model.ChannelModeRequired, true, 1),
		channelConfig(model.ChannelAV, model.ChannelModeRequired, true, 2),
	}
	engine := NewApprovalEngine(store.repo(), zap.NewNop())
	evt := seedDraft(t, store)

	plan, err := engine.Submit(context.Background(), evt, true, testCreatorID)
	if err != nil {
		t.Fatalf("Submit 应成功: %v", err)
	}
	if len(plan) != 2 {
		t.Fatalf("期望2条自动通过记录，实际=%d", len(plan))
	}
	stored, _ := store.event(evt.EventID)
	if stored.Status != model.EventStatusConfirmed {
		t.Errorf("全部自动通过时应直接确认，实际=%s", stored.Status)
	}
	if stored.ApprovedAt == nil {
		t.Error("确认时应记录 approved_at")
	}
}

func TestApprovalEngine_Submit_LocationRoutesToChannel(t *testing.T) {
	tests := []struct {
		name         string
		resourceType string
		want         map[model.ApprovalChannel]string
	}{
		{"体育场馆由体育部审批", model.ResourceTypeAthleticsVenue, map[model.ApprovalChannel]string{
			model.ChannelAthletics:  model.ApprovalStatusPending,
			model.ChannelFacilities: model.ApprovalStatusAutoApproved,
		}},
		{"设施由后勤审批", model.ResourceTypeFacility, map[model.ApprovalChannel]string{
			model.ChannelFacilities: model.ApprovalStatusPending,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore()
			store.configs.configs = []model.ApprovalChannelConfig{
				channelConfig(model.ChannelAthletics, model.ChannelModeRequired, false, 1),
				channelConfig(model.ChannelFacilities, model.ChannelModeRequired, true, 2),
			}
			store.locations.locations["loc-venue"] = model.Location{
				LocationID:     "loc-venue",
				OrganizationID: testOrgID,
				Name:           "东区体育场",
				ResourceType:   tt.resourceType,
				IsActive:       true,
			}
			engine := NewApprovalEngine(store.repo(), zap.NewNop())
			evt := seedDraft(t, store)
			evt.LocationID = strPtr("loc-venue")

			plan, err := engine.Submit(context.Background(), evt, true, testCreatorID)
			if err != nil {
				t.Fatalf("Submit 应成功: %v", err)
			}
			got := statusOf(plan)
			if len(got) != len(tt.want) {
				t.Fatalf("审批计划不正确: %v", got)
			}
			for ch, status := range tt.want {
				if got[ch] != status {
					t.Errorf("渠道 %s 期望 %s，实际=%s", ch, status, got[ch])
				}
			}
		})
	}
}

// ── 完整审批流程 ──

func TestApprovalEngine_MultiChannelFlow(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	store.configs.configs = []model.ApprovalChannelConfig{
		channelConfig(model.ChannelAdmin, model.ChannelModeRequired, false, 1),
		channelConfig(model.ChannelFacilities, model.ChannelModeRequired, false, 2),
	}
	engine := NewApprovalEngine(store.repo(), zap.NewNop())
	evt := seedDraft(t, store)
	store.requests.requests = []model.ResourceRequest{{EventID: evt.EventID, ResourceType: model.ResourceTypeFacility}}

	if _, err := engine.Submit(ctx, evt, true, testCreatorID); err != nil {
		t.Fatalf("Submit 应成功: %v", err)
	}
	if stored, _ := store.event(evt.EventID); stored.Status != model.EventStatusPendingApproval {
		t.Fatalf("提交后应为待审批，实际=%s", stored.Status)
	}

	// 第一个渠道通过，仍有渠道待审批
	got, err := engine.Approve(ctx, evt.EventID, model.ChannelAdmin, testAdminID)
	if err != nil {
		t.Fatalf("admin 审批应成功: %v", err)
	}
	if got.Status != model.EventStatusPendingApproval {
		t.Errorf("facilities 未审批时应保持待审批，实际=%s", got.Status)
	}

	// 同一渠道重复通过是幂等的
	if _, err := engine.Approve(ctx, evt.EventID, model.ChannelAdmin, testAdminID); err != nil {
		t.Errorf("重复通过应幂等，实际=%v", err)
	}

	got, err = engine.Approve(ctx, evt.EventID, model.ChannelFacilities, testAdminID)
	if err != nil {
		t.Fatalf("facilities 审批应成功: %v", err)
	}
	if got.Status != model.EventStatusConfirmed {
		t.Errorf("全部通过后应确认，实际=%s", got.Status)
	}
	stored, _ := store.event(evt.EventID)
	if stored.Status != model.EventStatusConfirmed || stored.ApprovedBy == nil || *stored.ApprovedBy != testAdminID {
		t.Errorf("确认状态与审批人应落库，实际 status=%s approved_by=%v", stored.Status, stored.ApprovedBy)
	}

	list, _ := engine.List(ctx, evt.EventID)
	if AggregateStatus(list) != stored.Status {
		t.Errorf("日程状态应与渠道记录汇总一致: %s vs %s", AggregateStatus(list), stored.Status)
	}
}

func TestApprovalEngine_RejectShortCircuits(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	store.configs.configs = []model.ApprovalChannelConfig{
		channelConfig(model.ChannelAdmin, model.ChannelModeRequired, false, 1),
		channelConfig(model.ChannelSecurity, model.ChannelModeRequired, false, 2),
	}
	engine := NewApprovalEngine(store.repo(), zap.NewNop())
	evt := seedDraft(t, store)
	store.requests.requests = []model.ResourceRequest{{EventID: evt.EventID, ResourceType: model.ResourceTypeSecurity}}

	if _, err := engine.Submit(ctx, evt, true, testCreatorID); err != nil {
		t.Fatalf("Submit 应成功: %v", err)
	}

	got, err := engine.Reject(ctx, evt.EventID, model.ChannelSecurity, testAdminID, "人手不足")
	if err != nil {
		t.Fatalf("驳回应成功: %v", err)
	}
	if got.Status != model.EventStatusRejected {
		t.Fatalf("任一渠道驳回应立即生效，实际=%s", got.Status)
	}

	// 重复驳回幂等
	if _, err := engine.Reject(ctx, evt.EventID, model.ChannelSecurity, testAdminID, "人手不足"); err != nil {
		t.Errorf("重复驳回应幂等，实际=%v", err)
	}

	// 驳回后其他渠道不能再通过
	if _, err := engine.Approve(ctx, evt.EventID, model.ChannelAdmin, testAdminID); !errors.Is(err, ErrEventNotPending) {
		t.Errorf("期望 ErrEventNotPending，实际=%v", err)
	}

	rec, _ := store.approvals.GetByEventChannel(ctx, evt.EventID, model.ChannelSecurity)
	if rec.RejectReason != "人手不足" || rec.ResponderID == nil {
		t.Errorf("驳回理由与审批人应落库，实际=%+v", rec)
	}
}

func TestApprovalEngine_UnknownChannel(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	engine := NewApprovalEngine(store.repo(), zap.NewNop())
	evt := seedDraft(t, store)
	if _, err := engine.Submit(ctx, evt, true, testCreatorID); err != nil {
		t.Fatalf("Submit 应成功: %v", err)
	}

	if _, err := engine.Approve(ctx, evt.EventID, model.ApprovalChannel("finance"), testAdminID); !errors.Is(err, ErrApprovalNotFound) {
		t.Errorf("未知渠道期望 ErrApprovalNotFound，实际=%v", err)
	}
	if _, err := engine.Approve(ctx, evt.EventID, model.ChannelAV, testAdminID); !errors.Is(err, ErrApprovalNotFound) {
		t.Errorf("未生成记录的渠道期望 ErrApprovalNotFound，实际=%v", err)
	}
	if _, err := engine.Approve(ctx, "missing", model.ChannelAdmin, testAdminID); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("期望 ErrEventNotFound，实际=%v", err)
	}
}

func TestApprovalEngine_ApproveAfterRaceIsRejected(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	engine := NewApprovalEngine(store.repo(), zap.NewNop())
	evt := seedDraft(t, store)
	if _, err := engine.Submit(ctx, evt, true, testCreatorID); err != nil {
		t.Fatalf("Submit 应成功: %v", err)
	}

	// 模拟并发：读取之后记录已被其他请求驳回
	rec, _ := store.approvals.GetByEventChannel(ctx, evt.EventID, model.ChannelAdmin)
	rec.Status = model.ApprovalStatusRejected
	store.approvals.approvals[rec.ApprovalID] = *rec

	if _, err := engine.Approve(ctx, evt.EventID, model.ChannelAdmin, testAdminID); !errors.Is(err, ErrApprovalNotPending) {
		t.Errorf("记录已处理时期望 ErrApprovalNotPending，实际=%v", err)
	}
}

func TestApprovalEngine_Approve_RepairsClearedEvent(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	store.configs.configs = []model.ApprovalChannelConfig{
		channelConfig(model.ChannelAdmin, model.ChannelModeRequired, false, 1),
		channelConfig(model.ChannelFacilities, model.ChannelModeRequired, false, 2),
	}
	engine := NewApprovalEngine(store.repo(), zap.NewNop())
	evt := seedDraft(t, store)
	store.requests.requests = []model.ResourceRequest{{EventID: evt.EventID, ResourceType: model.ResourceTypeFacility}}
	if _, err := engine.Submit(ctx, evt, true, testCreatorID); err != nil {
		t.Fatalf("Submit 应成功: %v", err)
	}

	// 两个渠道都已通过，但日程仍停留在待审批
	for _, ch := range []model.ApprovalChannel{model.ChannelAdmin, model.ChannelFacilities} {
		rec, _ := store.approvals.GetByEventChannel(ctx, evt.EventID, ch)
		rec.Status = model.ApprovalStatusApproved
		store.approvals.approvals[rec.ApprovalID] = *rec
	}

	got, err := engine.Approve(ctx, evt.EventID, model.ChannelAdmin, testAdminID)
	if err != nil {
		t.Fatalf("重复通过应成功: %v", err)
	}
	if got.Status != model.EventStatusConfirmed {
		t.Errorf("全部渠道已通过时应补做确认，实际=%s", got.Status)
	}
	stored, _ := store.event(evt.EventID)
	if stored.Status != model.EventStatusConfirmed || stored.ApprovedAt == nil {
		t.Errorf("确认状态应落库，实际 status=%s approved_at=%v", stored.Status, stored.ApprovedAt)
	}
	if store.events.forUpdateCalls == 0 {
		t.Error("审批决策应在锁住日程行后进行")
	}

	// 已确认后再次通过不再改动日程
	version := stored.Version
	if _, err := engine.Approve(ctx, evt.EventID, model.ChannelFacilities, testAdminID); err != nil {
		t.Errorf("确认后重复通过应幂等，实际=%v", err)
	}
	if again, _ := store.event(evt.EventID); again.Version != version {
		t.Errorf("幂等重放不应更新日程，版本 %d → %d", version, again.Version)
	}
}
