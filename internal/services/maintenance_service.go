package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"liliapp-bi-service/internal/apperrors"
	"liliapp-bi-service/internal/store"
)

const cleanWorkers = 10

// cleanableCollections lists the top-level collections the bulk cleanup
// may target. Anything else in the path is a caller mistake, not a
// collection to empty.
var cleanableCollections = map[string]bool{
	"services":   true,
	"categories": true,
	"customers":  true,
	"users":      true,
	"orders":     true,
}

// CleanReport summarizes one bulk deletion run.
type CleanReport struct {
	Target   string `json:"target"`
	Deleted  int    `json:"deleted"`
	Failed   int    `json:"failed"`
	Services int    `json:"services,omitempty"`
}

// MaintenanceService runs bulk deletions against the document store.
// Deletions are independent of each other, so they fan out over a
// fixed-size worker pool.
type MaintenanceService struct {
	store   store.Store
	workers int
	logger  *logrus.Entry
}

// NewMaintenanceService creates a maintenance runner. workers <= 0 uses
// the default pool size.
func NewMaintenanceService(s store.Store, workers int, logger *logrus.Logger) *MaintenanceService {
	if workers <= 0 {
		workers = cleanWorkers
	}
	return &MaintenanceService{store: s, workers: workers, logger: logger.WithField("component", "maintenance")}
}

type deleteTask struct {
	collection string
	id         string
}

// CleanServiceSubcollections removes every document under the variants
// and subcategories subcollections of every service.
func (m *MaintenanceService) CleanServiceSubcollections(ctx context.Context) (*CleanReport, error) {
	serviceIDs, err := m.store.ListDocumentIDs(ctx, "services")
	if err != nil {
		return nil, err
	}

	var tasks []deleteTask
	for _, serviceID := range serviceIDs {
		for _, child := range []string{"variants", "subcategories"} {
			path := fmt.Sprintf("services/%s/%s", serviceID, child)
			ids, err := m.store.ListDocumentIDs(ctx, path)
			if err != nil {
				return nil, err
			}
			for _, id := range ids {
				tasks = append(tasks, deleteTask{collection: path, id: id})
			}
		}
	}

	report := m.runDeletes(ctx, tasks)
	report.Target = "services subcollections"
	report.Services = len(serviceIDs)
	m.logger.WithFields(logrus.Fields{
		"services": report.Services,
		"deleted":  report.Deleted,
		"failed":   report.Failed,
	}).Info("subcollection cleanup finished")
	return report, nil
}

// CheckCleanTarget rejects collections outside the known top-level set.
// The HTTP layer calls it before scheduling a run so the caller gets the
// rejection instead of the background goroutine.
func (m *MaintenanceService) CheckCleanTarget(collection string) error {
	if !cleanableCollections[collection] {
		return &apperrors.ValidationError{Msg: fmt.Sprintf("unknown collection %q", collection)}
	}
	return nil
}

// CleanCollection removes every document of one top-level collection.
func (m *MaintenanceService) CleanCollection(ctx context.Context, collection string) (*CleanReport, error) {
	if err := m.CheckCleanTarget(collection); err != nil {
		return nil, err
	}
	ids, err := m.store.ListDocumentIDs(ctx, collection)
	if err != nil {
		return nil, err
	}

	tasks := make([]deleteTask, 0, len(ids))
	for _, id := range ids {
		tasks = append(tasks, deleteTask{collection: collection, id: id})
	}

	report := m.runDeletes(ctx, tasks)
	report.Target = collection
	m.logger.WithFields(logrus.Fields{
		"collection": collection,
		"deleted":    report.Deleted,
		"failed":     report.Failed,
	}).Info("collection cleanup finished")
	return report, nil
}

// runDeletes fans the tasks out over the worker pool. Individual
// failures are counted, not propagated: the run always drains.
func (m *MaintenanceService) runDeletes(ctx context.Context, tasks []deleteTask) *CleanReport {
	report := &CleanReport{}
	if len(tasks) == 0 {
		return report
	}

	queue := make(chan deleteTask)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < m.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range queue {
				err := m.store.DeleteDocument(ctx, task.collection, task.id)
				mu.Lock()
				if err != nil {
					report.Failed++
				} else {
					report.Deleted++
				}
				mu.Unlock()
				if err != nil {
					m.logger.WithFields(logrus.Fields{
						"collection": task.collection,
						"id":         task.id,
					}).WithError(err).Warn("delete failed")
				}
			}
		}()
	}

	for _, task := range tasks {
		queue <- task
	}
	close(queue)
	wg.Wait()

	return report
}
