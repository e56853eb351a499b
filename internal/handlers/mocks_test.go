package handlers

import (
	"context"
	"fmt"

	"github.com/ternarybob/relatus/internal/interfaces"
	"github.com/ternarybob/relatus/internal/models"
)

// mockHistory is a func-field HistoryStorage test double. Nil funcs behave
// as an empty store.
type mockHistory struct {
	appendFunc         func(ctx context.Context, job *models.ReportJob) error
	updateFunc         func(ctx context.Context, id string, update models.JobUpdate) error
	listFunc           func(ctx context.Context, reportType models.ReportType) ([]*models.ReportJob, error)
	getFunc            func(ctx context.Context, id string) (*models.ReportJob, error)
	listProcessingFunc func(ctx context.Context) ([]*models.ReportJob, error)
}

func (m *mockHistory) Append(ctx context.Context, job *models.ReportJob) error {
	if m.appendFunc != nil {
		return m.appendFunc(ctx, job)
	}
	return nil
}

func (m *mockHistory) Update(ctx context.Context, id string, update models.JobUpdate) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, update)
	}
	return nil
}

func (m *mockHistory) List(ctx context.Context, reportType models.ReportType) ([]*models.ReportJob, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, reportType)
	}
	return nil, nil
}

func (m *mockHistory) Get(ctx context.Context, id string) (*models.ReportJob, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return nil, fmt.Errorf("job not found: %s", id)
}

func (m *mockHistory) ListProcessing(ctx context.Context) ([]*models.ReportJob, error) {
	if m.listProcessingFunc != nil {
		return m.listProcessingFunc(ctx)
	}
	return nil, nil
}

// mockSettingsStorage is a func-field SettingsStorage test double.
type mockSettingsStorage struct {
	loadFunc func(ctx context.Context) (*models.Settings, error)
	saveFunc func(ctx context.Context, settings *models.Settings) error
}

func (m *mockSettingsStorage) Load(ctx context.Context) (*models.Settings, error) {
	if m.loadFunc != nil {
		return m.loadFunc(ctx)
	}
	return nil, nil
}

func (m *mockSettingsStorage) Save(ctx context.Context, settings *models.Settings) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, settings)
	}
	return nil
}

var _ interfaces.HistoryStorage = (*mockHistory)(nil)
var _ interfaces.SettingsStorage = (*mockSettingsStorage)(nil)
