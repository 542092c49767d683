package service

import (
	"context"

	"github.com/spec-kit/hubops-service/internal/domain"
	"github.com/spec-kit/hubops-service/internal/repository"
)

// DirectoryService answers department and staff lookups.
type DirectoryService struct {
	store *repository.Store
}

// NewDirectoryService constructs the service.
func NewDirectoryService(store *repository.Store) *DirectoryService {
	return &DirectoryService{store: store}
}

// ListDepartments returns every department by id.
func (s *DirectoryService) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	depts, err := s.store.Repos().Departments.List(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return depts, nil
}

// ListStaff returns the staff users of a department ordered by id. An
// unknown department simply has no staff.
func (s *DirectoryService) ListStaff(ctx context.Context, departmentID int64) ([]domain.User, error) {
	staff, err := s.store.Repos().Users.ListStaff(ctx, departmentID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return staff, nil
}
