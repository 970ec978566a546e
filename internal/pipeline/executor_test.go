package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/hookbridge/hookbridge/internal/config"
	"github.com/hookbridge/hookbridge/internal/event"
	"github.com/hookbridge/hookbridge/internal/events"
	"github.com/hookbridge/hookbridge/internal/filter"
	"github.com/hookbridge/hookbridge/internal/store"
	"github.com/hookbridge/hookbridge/internal/store/mocks"
)

func testConfig(pipelines ...config.PipelineConfig) *config.Config {
	return &config.Config{
		Workers: config.WorkersConfig{Count: 2, QueueSize: 8},
		Integrations: []config.IntegrationConfig{
			{Name: "jira", Pipelines: pipelines},
		},
	}
}

func newTestExecutor(t *testing.T, st store.DocumentStore, cfg *config.Config) (*Executor, *events.Hub) {
	t.Helper()
	eval, err := filter.NewEvaluator()
	if err != nil {
		t.Fatalf("NewEvaluator() error = %v", err)
	}
	hub := events.NewHub(64)
	return NewExecutor(st, eval, hub, cfg), hub
}

func issueEvent(t *testing.T) *event.NormalizedEvent {
	t.Helper()
	body := decodeBody(t, `{
		"webhookEvent": "jira:issue_created",
		"issue": {
			"id": "10001",
			"key": "PROJ-1",
			"fields": {"labels": ["bug"], "priority": 4, "summary": "Broken build"}
		},
		"version": {"name": "1.0.0"}
	}`)
	return &event.NormalizedEvent{
		ID:        "ev-1",
		Body:      body,
		EventType: "jira:issue_created",
		PKFields:  []string{"issue.id"},
		Operation: event.OpWrite,
	}
}

func hubTypes(h *events.Hub) []string {
	var out []string
	for _, ev := range h.SnapshotSince(0) {
		out = append(out, ev.Type)
	}
	return out
}

func dropReason(t *testing.T, h *events.Hub) string {
	t.Helper()
	for _, ev := range h.SnapshotSince(0) {
		if ev.Type != events.TypePipelineDropped {
			continue
		}
		var data map[string]any
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			t.Fatalf("decode drop payload: %v", err)
		}
		reason, _ := data["reason"].(string)
		return reason
	}
	return ""
}

func TestRunFilterDropsEvent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockDocumentStore(ctrl)
	cfg := testConfig(config.PipelineConfig{
		Name: "deletes-only",
		Processors: []config.ProcessorConfig{
			{Type: config.ProcessorFilter, Expression: `eventType == "jira:issue_deleted"`},
		},
		Sinks: []config.SinkConfig{
			{Type: config.SinkDatabase, Collection: "issues", Mode: config.SinkModeUpsert},
		},
	})

	ex, hub := newTestExecutor(t, mockStore, cfg)
	ex.run(context.Background(), job{integration: "jira", pipeline: &ex.pipelines["jira"][0], event: issueEvent(t)})

	assert.Equal(t, int64(1), ex.Snapshot().Dropped)
	assert.Contains(t, hubTypes(hub), events.TypePipelineDropped)
	assert.Equal(t, "filtered", dropReason(t, hub))
}

func TestRunFilterErrorFailsClosed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockDocumentStore(ctrl)
	cfg := testConfig(config.PipelineConfig{
		Name: "broken-filter",
		Processors: []config.ProcessorConfig{
			{Type: config.ProcessorFilter, Expression: `project.id == "1"`},
		},
		Sinks: []config.SinkConfig{
			{Type: config.SinkDatabase, Collection: "issues", Mode: config.SinkModeUpsert},
		},
	})

	ex, hub := newTestExecutor(t, mockStore, cfg)
	ex.run(context.Background(), job{integration: "jira", pipeline: &ex.pipelines["jira"][0], event: issueEvent(t)})

	assert.Equal(t, int64(1), ex.Snapshot().Dropped)
	assert.Equal(t, "filter_error", dropReason(t, hub))
}

func TestRunMapperProducesTypedDocument(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockDocumentStore(ctrl)
	cfg := testConfig(config.PipelineConfig{
		Name: "issues",
		Processors: []config.ProcessorConfig{
			{Type: config.ProcessorFilter, Expression: `issue.key == "PROJ-1"`},
			{Type: config.ProcessorMapper, Template: map[string]any{
				"issueId":  "{{ issue.id }}",
				"labels":   "{{ issue.fields.labels }}",
				"priority": "{{ issue.fields.priority }}",
				"title":    "v{{ version.name }}",
			}},
		},
		Sinks: []config.SinkConfig{
			{Type: config.SinkDatabase, Collection: "issues", Mode: config.SinkModeUpsert},
		},
	})

	var stored map[string]any
	mockStore.EXPECT().
		Upsert(gomock.Any(), "issues", "ev-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, d map[string]any) error {
			stored = d
			return nil
		})

	ex, hub := newTestExecutor(t, mockStore, cfg)
	ex.run(context.Background(), job{integration: "jira", pipeline: &ex.pipelines["jira"][0], event: issueEvent(t)})

	assert.Equal(t, "10001", stored["issueId"])
	assert.Equal(t, []any{"bug"}, stored["labels"])
	assert.Equal(t, float64(4), stored["priority"])
	assert.Equal(t, "v1.0.0", stored["title"])
	assert.Equal(t, "ev-1", stored[MetaID])
	assert.Equal(t, "jira:issue_created", stored[MetaEventType])
	assert.Equal(t, int64(1), ex.Snapshot().DocumentsWritten)
	assert.Contains(t, hubTypes(hub), events.TypeDocumentWritten)
}

func TestRunChainSeesMappedBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockDocumentStore(ctrl)
	cfg := testConfig(config.PipelineConfig{
		Name: "chained",
		Processors: []config.ProcessorConfig{
			{Type: config.ProcessorMapper, Template: map[string]any{
				"flag": "{{ issue.fields.priority }}",
			}},
			{Type: config.ProcessorFilter, Expression: `flag > 3`},
		},
		Sinks: []config.SinkConfig{
			{Type: config.SinkDatabase, Collection: "flags", Mode: config.SinkModeUpsert},
		},
	})

	mockStore.EXPECT().Upsert(gomock.Any(), "flags", "ev-1", gomock.Any()).Return(nil)

	ex, _ := newTestExecutor(t, mockStore, cfg)
	ex.run(context.Background(), job{integration: "jira", pipeline: &ex.pipelines["jira"][0], event: issueEvent(t)})

	assert.Equal(t, int64(1), ex.Snapshot().DocumentsWritten)
}

func TestRunChainDropsOriginalFields(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockDocumentStore(ctrl)
	cfg := testConfig(config.PipelineConfig{
		Name: "chained",
		Processors: []config.ProcessorConfig{
			{Type: config.ProcessorMapper, Template: map[string]any{
				"flag": "{{ issue.fields.priority }}",
			}},
			// version is gone after mapping, so this must fail closed.
			{Type: config.ProcessorFilter, Expression: `version.name == "1.0.0"`},
		},
		Sinks: []config.SinkConfig{
			{Type: config.SinkDatabase, Collection: "flags", Mode: config.SinkModeUpsert},
		},
	})

	ex, hub := newTestExecutor(t, mockStore, cfg)
	ex.run(context.Background(), job{integration: "jira", pipeline: &ex.pipelines["jira"][0], event: issueEvent(t)})

	assert.Equal(t, int64(1), ex.Snapshot().Dropped)
	assert.Equal(t, "filter_error", dropReason(t, hub))
}

func TestRunSinkFailureIsolated(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockDocumentStore(ctrl)
	cfg := testConfig(config.PipelineConfig{
		Name: "two-sinks",
		Sinks: []config.SinkConfig{
			{Type: config.SinkDatabase, Collection: "primary", Mode: config.SinkModeUpsert},
			{Type: config.SinkDatabase, Collection: "secondary", Mode: config.SinkModeUpsert},
		},
	})

	gomock.InOrder(
		mockStore.EXPECT().
			Upsert(gomock.Any(), "primary", "ev-1", gomock.Any()).
			Return(errors.New("connection refused")),
		mockStore.EXPECT().
			Upsert(gomock.Any(), "secondary", "ev-1", gomock.Any()).
			Return(nil),
	)

	ex, hub := newTestExecutor(t, mockStore, cfg)
	ex.run(context.Background(), job{integration: "jira", pipeline: &ex.pipelines["jira"][0], event: issueEvent(t)})

	snap := ex.Snapshot()
	assert.Equal(t, int64(1), snap.SinkErrors)
	assert.Equal(t, int64(1), snap.DocumentsWritten)
	assert.Contains(t, hubTypes(hub), events.TypeSinkError)
	assert.Contains(t, hubTypes(hub), events.TypeDocumentWritten)
}

func TestRunDeleteRemovesDocument(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockDocumentStore(ctrl)
	cfg := testConfig(config.PipelineConfig{
		Name: "issues",
		Sinks: []config.SinkConfig{
			{Type: config.SinkDatabase, Collection: "issues", Mode: config.SinkModeUpsert},
		},
	})

	mockStore.EXPECT().Delete(gomock.Any(), "issues", "ev-1").Return(nil)

	ev := issueEvent(t)
	ev.Operation = event.OpDelete

	ex, hub := newTestExecutor(t, mockStore, cfg)
	ex.run(context.Background(), job{integration: "jira", pipeline: &ex.pipelines["jira"][0], event: ev})

	assert.Equal(t, int64(1), ex.Snapshot().DocumentsDeleted)
	assert.Contains(t, hubTypes(hub), events.TypeDocumentDeleted)
}

func TestDispatchFansOutToAllPipelines(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockDocumentStore(ctrl)
	cfg := testConfig(
		config.PipelineConfig{
			Name:  "to-a",
			Sinks: []config.SinkConfig{{Type: config.SinkDatabase, Collection: "a", Mode: config.SinkModeUpsert}},
		},
		config.PipelineConfig{
			Name:  "to-b",
			Sinks: []config.SinkConfig{{Type: config.SinkDatabase, Collection: "b", Mode: config.SinkModeUpsert}},
		},
	)

	mockStore.EXPECT().Upsert(gomock.Any(), "a", "ev-1", gomock.Any()).Return(nil)
	mockStore.EXPECT().Upsert(gomock.Any(), "b", "ev-1", gomock.Any()).Return(nil)

	ex, hub := newTestExecutor(t, mockStore, cfg)
	ex.Start(context.Background())
	assert.NoError(t, ex.Dispatch(context.Background(), "jira", issueEvent(t)))
	ex.Stop()

	snap := ex.Snapshot()
	assert.Equal(t, int64(2), snap.Dispatched)
	assert.Equal(t, int64(2), snap.DocumentsWritten)
	assert.Contains(t, hubTypes(hub), events.TypeEventAccepted)
}

func TestDispatchInsertOnlyKeepsEveryDelivery(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockDocumentStore(ctrl)
	cfg := testConfig(config.PipelineConfig{
		Name:  "audit",
		Sinks: []config.SinkConfig{{Type: config.SinkDatabase, Collection: "audit", Mode: config.SinkModeInsertOnly}},
	})

	mockStore.EXPECT().Insert(gomock.Any(), "audit", gomock.Any()).Return(nil).Times(3)

	ex, _ := newTestExecutor(t, mockStore, cfg)
	ex.Start(context.Background())
	for range 3 {
		assert.NoError(t, ex.Dispatch(context.Background(), "jira", issueEvent(t)))
	}
	ex.Stop()

	assert.Equal(t, int64(3), ex.Snapshot().DocumentsWritten)
}

func TestDispatchUnknownIntegration(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockDocumentStore(ctrl)
	ex, hub := newTestExecutor(t, mockStore, testConfig())

	assert.NoError(t, ex.Dispatch(context.Background(), "ghost", issueEvent(t)))
	assert.Equal(t, int64(0), ex.Snapshot().Dispatched)
	assert.Contains(t, hubTypes(hub), events.TypeEventAccepted)
}
