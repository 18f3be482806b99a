package centerrepofakes

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/ilumina-session/centers"
	ierrors "github.com/jrsteele09/ilumina-session/internal/errors"
)

var _ centers.Repo = (*FakeCenterRepo)(nil)

type FakeCenterRepo struct {
	centers map[string]*centers.Center
	lock    sync.RWMutex
}

func NewFakeCenterRepo() centers.Repo {
	return &FakeCenterRepo{
		centers: make(map[string]*centers.Center),
	}
}

func (cr *FakeCenterRepo) Upsert(center *centers.Center) error {
	cr.lock.Lock()
	defer cr.lock.Unlock()
	if center.ID == "" {
		center.ID = uuid.New().String()
	}
	cr.centers[center.ID] = center
	return nil
}

func (cr *FakeCenterRepo) Delete(centerID string) error {
	cr.lock.Lock()
	defer cr.lock.Unlock()
	delete(cr.centers, centerID)
	return nil
}

func (cr *FakeCenterRepo) Get(centerID string) (*centers.Center, error) {
	cr.lock.RLock()
	defer cr.lock.RUnlock()
	center, ok := cr.centers[centerID]
	if !ok {
		return nil, ierrors.ErrNotFound
	}
	return center, nil
}

func (cr *FakeCenterRepo) List(offset, limit int) ([]*centers.Center, error) {
	cr.lock.RLock()
	defer cr.lock.RUnlock()

	list := make([]*centers.Center, 0, len(cr.centers))
	for _, c := range cr.centers {
		list = append(list, c)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})

	if offset >= len(list) {
		return []*centers.Center{}, nil
	}
	end := len(list)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return list[offset:end], nil
}
